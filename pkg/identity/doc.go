// Package identity changes the crawler's apparent network origin after the
// search API starts failing or blocking requests.
//
// Providers:
//   - none: rotation is a no-op and the crawl simply waits and retries
//   - nordvpn: reconnects the nordvpn CLI to a random configured country
//   - tor: asks a Tor daemon for a new circuit (SIGNAL NEWNYM) and routes
//     HTTP traffic through its SOCKS5 port; the daemon can be embedded
//
// A rotation that cannot be performed returns an error matching
// errors.ErrRotationUnavailable.
package identity
