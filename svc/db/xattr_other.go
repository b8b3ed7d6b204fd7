//go:build !linux

package db

import (
	"os"

	"pastabin/pkg/domain"
)

func setSecret(*os.File, domain.Secret) error {
	return ErrXattrUnsupported
}

func getSecret(*os.File) (domain.Secret, bool, error) {
	return "", false, ErrXattrUnsupported
}
