// Package server hosts the local Fiber HTTP service: request-id and recover
// middlewares, search passthrough, on-demand fetch into the cache, and routes
// that serve cached images and their metadata sidecars. It also owns the shared
// upstream http.Client used by both the search client and the fetch pipeline.
// Keep exports narrow and accept explicit dependencies so tests can inject
// fake searchers and fetchers.
package server
