// Package query orchestrates the end-to-end lookup pipeline. It
// validates incoming queries, consults the response cache, routes
// misses to the specialized processors, and records every completed
// query in the performance tracker.
package query
