// Package checkpoint persists the crawl cursor.
//
// The cursor records the index of the query being crawled and the last page
// of that query whose downloads have fully drained. It is written to
// state.json after every page and on every query advance, through a temporary
// file that is synced and renamed over the old one, so a crash never leaves a
// torn cursor behind.
package checkpoint
