// Package logging provides leveled logging for the asset manager.
// The active level is read once from the DEBUG and LOG_LEVEL environment
// variables; messages below the active level are dropped.
package logging
