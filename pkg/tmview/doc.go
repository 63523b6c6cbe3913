// Package tmview is the client for the TMview trademark search API.
//
// FetchPage posts one query page and classifies every failure:
//   - transport errors are network errors
//   - any status other than 200 is a status error
//   - an unparseable body is a parsing error
//   - an empty tradeMarks list wraps errors.ErrExhausted
//
// All of these except exhaustion are transient for the crawl driver, which
// decides whether to rotate identity and retry. The client itself never
// retries a page. DownloadImage fetches one image and reports any non-200
// response as a download error.
package tmview
