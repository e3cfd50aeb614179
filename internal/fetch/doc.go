// Package fetch retrieves page and resource bytes over HTTP.
//
// The fetcher never surfaces per-resource failures as errors. Every network
// error, non-2xx status, and timeout degrades to a Result with Failed set,
// so batch callers can skip the resource and keep going. This sentinel
// discipline is what keeps a mirror session alive across unreachable assets.
//
// An optional SOCKS5 proxy (e.g., a local Tor daemon) can be configured for
// all connections.
package fetch
