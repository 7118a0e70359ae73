package encoder

import "fmt"

// Checksum XORs every character between the leading '$' (or '!') and '*'.
func Checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

// seal prefixes '$' and appends the "*HH" checksum to a sentence body.
func seal(body string) string {
	return fmt.Sprintf("$%s*%02X", body, Checksum(body))
}
