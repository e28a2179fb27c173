// Package cache defines the disk-backed store that keeps downloaded images under
// CacheDir/<key> with an optional CacheDir/<key>.json metadata sidecar. Every
// operation is serialized by a mutex owned by the store instance, so two stores
// opened on different roots never contend. The blob is always written before
// its sidecar; an interrupted put may leave a blob without metadata but never
// the reverse. The fetch pipeline depends on this package to persist downloads
// without duplicating filesystem logic.
package cache
