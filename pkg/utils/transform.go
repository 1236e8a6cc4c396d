package utils

import "strings"

// BoolToUInt8 maps a bool onto the UInt8 columns the archive schema uses.
func BoolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Dedup returns the endpoints with trailing slashes stripped and duplicates
// removed, first occurrence winning.
func Dedup(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
