package dom

import "unicode/utf16"

// UTF16Length returns the length of s in UTF-16 code units, the unit script
// string lengths and character offsets are measured in.
func UTF16Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
