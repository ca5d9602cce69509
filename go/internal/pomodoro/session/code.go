package session

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
)

// CodeAlphabet holds the symbols a session code is drawn from. Characters that
// are easy to misread when typed by hand (O, 0, I, 1, L) are left out.
const CodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the number of symbols in a session code.
const CodeLength = 6

// CodeSource draws a candidate session code. The registry rejects draws that
// collide with a live session and asks again.
type CodeSource func() (string, error)

// GenerateCode draws CodeLength symbols independently and uniformly from CodeAlphabet.
func GenerateCode() (string, error) {
	max := big.NewInt(int64(len(CodeAlphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random symbol: %w", err)
		}
		buf[i] = CodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidCode reports whether code has the shape of a generated session code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !inAlphabet(code[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(CodeAlphabet); i++ {
		if CodeAlphabet[i] == c {
			return true
		}
	}
	return false
}
