// Package serial generates the stable 8-character document identifiers used
// as index keys and asset shard names.
package serial

import (
	"math/rand/v2"
	"regexp"
)

// Length is the fixed serial length.
const Length = 8

const (
	letters = "abcdefghijklmnopqrstuvwxyz"
	alnum   = letters + "0123456789"
)

var validRe = regexp.MustCompile(`^[a-z][a-z0-9]{7}$`)

// Generate returns a random serial: one lowercase letter followed by seven
// lowercase alphanumerics. The source does not need to be cryptographic,
// only collision-resistant (26 * 36^7 combinations).
func Generate() string {
	buf := make([]byte, Length)
	buf[0] = letters[rand.IntN(len(letters))]
	for i := 1; i < Length; i++ {
		buf[i] = alnum[rand.IntN(len(alnum))]
	}
	return string(buf)
}

// GenerateUnique returns a serial for which taken reports false. The caller
// must supply the freshest view of the index; uniqueness only holds under the
// single-writer discipline.
func GenerateUnique(taken func(string) bool) string {
	for {
		s := Generate()
		if taken == nil || !taken(s) {
			return s
		}
	}
}

// Valid reports whether s has the expected serial shape.
func Valid(s string) bool {
	return validRe.MatchString(s)
}
