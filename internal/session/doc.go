// Package session keeps the filter state of each browser separately.
//
// A browser is identified by a UUID carried in a signed cookie; the
// signature is an HMAC-SHA256 keyed from the configured secret through HKDF.
// Store holds one filter.State per id and forgets sessions that stay idle
// longer than the TTL.
package session
