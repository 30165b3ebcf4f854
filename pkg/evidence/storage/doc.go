// Package storage provides backends for scenario records.
//
//   - SQLite: durable store on mattn/go-sqlite3 with queries built by
//     squirrel. Journal mode and busy timeout are set per connection through
//     the DSN.
//   - Memory: map-backed store for tests and dry runs.
//
// Both backends sort and paginate identically: newest FinishedAt first by
// default, ties broken by record ID.
package storage
