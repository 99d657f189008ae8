// Package index provides read access to a previously built AST
// annotation index stored in SQLite.
//
// The query core consumes the index through the Reader interface:
// annotation lookup by node ID or file, line-level content search,
// cosine vector search over stored embeddings, and normalized
// signature lookup. Write operations exist on SQLiteIndex for the
// index-building tooling and for tests, but nothing on the serving
// path mutates the index.
//
// Two SQLite drivers are supported via build tags: modernc.org/sqlite
// (pure Go, the default) and mattn/go-sqlite3 (cgo, faster for large
// indexes). See build_purego.go and build_cgo.go.
package index
