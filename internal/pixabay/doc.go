// Package pixabay is the remote search client: it builds image search queries,
// decodes hits into Image records and hands them to the fetch pipeline. Records
// keep any fields the client does not model so they reach the cache sidecar
// untouched.
package pixabay
