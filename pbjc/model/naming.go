package model

import (
	"strings"
	"unicode"
)

// CamelUpper converts a protobuf identifier such as "first_name" to "FirstName".
func CamelUpper(s string) string {
	return camel(s, true)
}

// CamelLower converts a protobuf identifier such as "first_name" to "firstName".
func CamelLower(s string) string {
	return camel(s, false)
}

func camel(s string, upper bool) string {
	sb := strings.Builder{}
	sb.Grow(len(s))
	next := upper
	for i, r := range s {
		switch {
		case r == '_':
			next = sb.Len() > 0 || upper
		case next:
			sb.WriteRune(unicode.ToUpper(r))
			next = false
		case i == 0 && !upper:
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// UpperSnake converts an identifier such as "firstName" or "first_name" to "FIRST_NAME".
func UpperSnake(s string) string {
	sb := strings.Builder{}
	sb.Grow(len(s) + 4)
	prev := rune(0)
	for _, r := range s {
		if r == '_' {
			if sb.Len() > 0 && prev != '_' {
				sb.WriteByte('_')
			}
			prev = r
			continue
		}
		if unicode.IsUpper(r) && prev != 0 && prev != '_' && !unicode.IsUpper(prev) {
			sb.WriteByte('_')
		}
		sb.WriteRune(unicode.ToUpper(r))
		prev = r
	}
	return sb.String()
}
