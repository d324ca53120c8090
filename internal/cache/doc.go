// Package cache stores the single cached analysis record.
//
// Three backends implement analysis.CacheStore: a JSON file replaced by
// write-then-rename, a row in the SQLite analysis_cache table and a Redis
// key. All of them store the flattened JSON form of analysis.CacheRecord.
// A missing record and a record that cannot be decoded both read as
// (nil, nil); corruption is logged and counted but never fails a request.
package cache
