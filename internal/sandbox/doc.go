// Package sandbox confines every filesystem path the service touches to a
// single output root. All other packages must resolve caller-supplied
// filenames and subfolders through a Resolver before reading or writing.
package sandbox
