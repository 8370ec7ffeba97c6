// Package workers sizes and bounds concurrency for CPU-heavy image work.
package workers
