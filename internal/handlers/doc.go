// Package handlers contains all HTTP request handlers: the gallery
// listing, metadata extraction, deletion, archive download, resize
// uploads, the prompt library and app state endpoints, model browsing,
// and the health and version probes.
package handlers
