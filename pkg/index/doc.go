// Package index provides the SQLite-backed dedup index.
//
// The index maps each item's stable identifier to the filename of its stored
// image in a single table:
//
//	CREATE TABLE images (id TEXT PRIMARY KEY, filename TEXT UNIQUE)
//
// Entries are added when a download completes, or retroactively at startup by
// Reconcile for every image already present in the output directory. Entries
// are never removed. The database lives next to the cursor as image_index.db.
package index
