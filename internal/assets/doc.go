// Package assets provides the gallery view over the output root: recursive
// scanning into grouped listings, bulk deletion with partial-failure
// accounting, in-memory zip building, and a change watcher that feeds
// metrics. Listings are derived fresh on every call; nothing is cached.
package assets
