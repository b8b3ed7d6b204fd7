package util

import (
	"crypto/rand"
	"io"

	"pastabin/pkg/domain"

	"github.com/pkg/errors"
)

const (
	secretChars = base62Chars + "!@#$%^&*()_+="
	SecretSize  = 12
)

type SecretGen struct {
	rnd io.Reader
}

func NewSecretGen(rnd io.Reader) *SecretGen {
	if rnd == nil {
		rnd = rand.Reader
	}
	return &SecretGen{rnd: rnd}
}

func (g *SecretGen) Generate(size int) (domain.Secret, error) {
	if size <= 0 {
		return "", errors.Errorf("secret size %d must be positive", size)
	}
	b, err := drawFrom(g.rnd, secretChars, size)
	if err != nil {
		return "", err
	}
	return domain.Secret(b), nil
}
