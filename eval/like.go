package eval

import "unicode/utf8"

// Like reports whether s matches a LIKE pattern. '%' matches any run of characters,
// '_' exactly one, and ASCII letters match without regard to case. escape, when not
// zero, makes the following pattern character literal.
func Like(pattern, s string, escape rune) bool {
	for len(pattern) > 0 {
		p, size := utf8.DecodeRuneInString(pattern)
		pattern = pattern[size:]

		switch {
		case escape != 0 && p == escape:
			if len(pattern) == 0 {
				return false
			}
			p, size = utf8.DecodeRuneInString(pattern)
			pattern = pattern[size:]
			if len(s) == 0 {
				return false
			}
			c, n := utf8.DecodeRuneInString(s)
			if !foldEqual(p, c) {
				return false
			}
			s = s[n:]

		case p == '%':
			for len(pattern) > 0 {
				next, n := utf8.DecodeRuneInString(pattern)
				if next == '%' {
					pattern = pattern[n:]
					continue
				}
				if next == '_' {
					if len(s) == 0 {
						return false
					}
					_, m := utf8.DecodeRuneInString(s)
					s = s[m:]
					pattern = pattern[n:]
					continue
				}
				break
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(s); {
				if Like(pattern, s[i:], escape) {
					return true
				}
				if i == len(s) {
					break
				}
				_, n := utf8.DecodeRuneInString(s[i:])
				i += n
			}
			return false

		case p == '_':
			if len(s) == 0 {
				return false
			}
			_, n := utf8.DecodeRuneInString(s)
			s = s[n:]

		default:
			if len(s) == 0 {
				return false
			}
			c, n := utf8.DecodeRuneInString(s)
			if !foldEqual(p, c) {
				return false
			}
			s = s[n:]
		}
	}
	return len(s) == 0
}

func foldEqual(a, b rune) bool {
	if a == b {
		return true
	}
	if 'A' <= a && a <= 'Z' {
		a += 'a' - 'A'
	}
	if 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return a == b
}
