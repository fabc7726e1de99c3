package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so that a caller-supplied identifier containing ':' cannot land in a
// neighbouring bucket.
//
// Example: an email "a:ip:10.0.0.1" becomes "a_ip_10.0.0.1".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// IPKey builds the bucket key for a client address.
func IPKey(class EndpointClass, ip string) string {
	return "ratelimit:" + string(class) + ":ip:" + SanitizeKeySegment(ip)
}

// IdentityKey builds the bucket key for a registrant identity. Case is folded
// so "A@x.org" and "a@x.org" share a bucket.
func IdentityKey(class EndpointClass, identity string) string {
	return "ratelimit:" + string(class) + ":id:" + SanitizeKeySegment(strings.ToLower(strings.TrimSpace(identity)))
}
