package types

// RefnoPrefix marks a reference number as server-issued. The placement
// service is the only producer of refnos; anything without this shape was
// fabricated client-side and must never reach the order API.
const RefnoPrefix = "XMR"

// AuthoritativeRefno reports whether s has the server-issued shape:
// the literal prefix followed by at least one digit.
func AuthoritativeRefno(s string) bool {
	if len(s) <= len(RefnoPrefix) || s[:len(RefnoPrefix)] != RefnoPrefix {
		return false
	}
	for _, c := range s[len(RefnoPrefix):] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
