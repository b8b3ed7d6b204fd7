package util

import (
	"io"

	"github.com/pkg/errors"
)

// maxDrawRounds bounds reads from a source that keeps yielding rejected bytes.
const maxDrawRounds = 64

var errRejectedSource = errors.New("rand source yields only rejected bytes")

// drawFrom picks size symbols from alphabet using bytes read from rnd.
// Bytes at or above the largest multiple of len(alphabet) are rejected so
// every symbol is equally likely.
func drawFrom(rnd io.Reader, alphabet string, size int) ([]byte, error) {
	n := len(alphabet)
	limit := 256 - 256%n
	out := make([]byte, 0, size)
	buf := make([]byte, size)
	for round := 0; len(out) < size; round++ {
		if round == maxDrawRounds {
			return nil, errRejectedSource
		}
		need := buf[:size-len(out)]
		if _, err := io.ReadFull(rnd, need); err != nil {
			return nil, errors.Wrap(err, "rand fail")
		}
		for _, b := range need {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
		}
	}
	return out, nil
}

func inAlphabet(alphabet string, c byte) bool {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return true
		}
	}
	return false
}
