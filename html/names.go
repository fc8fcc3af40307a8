package html

import (
	"strings"

	"github.com/chrisuehlinger/vibedom/dom"
)

// isValidName checks if a string matches the XML Name production.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, ch := range name {
		if i == 0 {
			if !isNameStartChar(ch) {
				return false
			}
			continue
		}
		if !isNameChar(ch) {
			return false
		}
	}
	return true
}

func isNameStartChar(ch rune) bool {
	return ch == ':' ||
		(ch >= 'A' && ch <= 'Z') ||
		ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 0xC0 && ch <= 0xD6) ||
		(ch >= 0xD8 && ch <= 0xF6) ||
		(ch >= 0xF8 && ch <= 0x2FF) ||
		(ch >= 0x370 && ch <= 0x37D) ||
		(ch >= 0x37F && ch <= 0x1FFF) ||
		(ch >= 0x200C && ch <= 0x200D) ||
		(ch >= 0x2070 && ch <= 0x218F) ||
		(ch >= 0x2C00 && ch <= 0x2FEF) ||
		(ch >= 0x3001 && ch <= 0xD7FF) ||
		(ch >= 0xF900 && ch <= 0xFDCF) ||
		(ch >= 0xFDF0 && ch <= 0xFFFD) ||
		(ch >= 0x10000 && ch <= 0xEFFFF)
}

func isNameChar(ch rune) bool {
	return isNameStartChar(ch) ||
		ch == '-' ||
		ch == '.' ||
		(ch >= '0' && ch <= '9') ||
		ch == 0xB7 ||
		(ch >= 0x0300 && ch <= 0x036F) ||
		(ch >= 0x203F && ch <= 0x2040)
}

// splitQualifiedName validates a qualified name and splits it at the first colon.
// https://dom.spec.whatwg.org/#validate-and-extract
func splitQualifiedName(qualifiedName string) (dom.Prefix, dom.LocalName, error) {
	if !isValidName(qualifiedName) {
		return dom.NoPrefix, "", dom.ErrInvalidCharacter("The string contains invalid characters.")
	}
	prefix, local, found := strings.Cut(qualifiedName, ":")
	if !found {
		return dom.NoPrefix, dom.LocalName(qualifiedName), nil
	}
	if prefix == "" || local == "" || strings.Contains(local, ":") || !isValidName(local) {
		return dom.NoPrefix, "", dom.ErrInvalidCharacter("The qualified name is not valid.")
	}
	return dom.Prefix(prefix), dom.LocalName(local), nil
}
