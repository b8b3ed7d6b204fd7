package util

import (
	"crypto/rand"
	"io"

	"pastabin/pkg/domain"

	"github.com/pkg/errors"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	IDSize      = 8
	MaxIDSize   = 64
)

type IDCodec struct {
	rnd io.Reader
}

// NewIDCodec returns a codec drawing from rnd, or from crypto/rand when rnd is nil.
func NewIDCodec(rnd io.Reader) *IDCodec {
	if rnd == nil {
		rnd = rand.Reader
	}
	return &IDCodec{rnd: rnd}
}

func (c *IDCodec) Generate(size int) (domain.PasteID, error) {
	if size <= 0 || size > MaxIDSize {
		return "", errors.Errorf("id size %d out of range [1, %d]", size, MaxIDSize)
	}
	b, err := drawFrom(c.rnd, base62Chars, size)
	if err != nil {
		return "", err
	}
	return domain.PasteID(b), nil
}

// ParseID validates raw without normalising it. Length is checked first.
func ParseID(raw string) (domain.PasteID, error) {
	if len(raw) > MaxIDSize {
		return "", domain.ErrIDTooLong
	}
	for i := 0; i < len(raw); i++ {
		if !inAlphabet(base62Chars, raw[i]) {
			return "", domain.ErrIDInvalidChars
		}
	}
	return domain.PasteID(raw), nil
}
