// Package fetch turns a remote image record into a cached local file: it picks
// the full-resolution URL (or the large preview when absent), downloads it with
// a single bounded GET outside the cache lock, and persists the bytes plus the
// record's fields through cache.Store.
package fetch
