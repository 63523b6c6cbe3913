// Package crawler drives a resumable crawl over the TMview query space.
//
// The Driver is a small state machine:
//
//	FETCHING_PAGE   -> DOWNLOADING      page returned items
//	FETCHING_PAGE   -> FETCHING_PAGE    transient failure, identity rotated
//	FETCHING_PAGE   -> ADVANCING_QUERY  empty page, rotation failure or attempt cap
//	DOWNLOADING     -> FETCHING_PAGE    batch drained and cursor saved
//	DOWNLOADING     -> ADVANCING_QUERY  page ceiling reached
//	ADVANCING_QUERY -> FETCHING_PAGE    next query, page 1
//	ADVANCING_QUERY -> DONE             no queries left
//
// The cursor is written only after a page's downloads have all finished, so a
// page interrupted by cancellation or a crash is fetched again on the next run.
// Images already on disk are skipped through the dedup index.
package crawler
