//go:build linux

package db

import (
	"os"

	"pastabin/pkg/domain"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func setSecret(f *os.File, secret domain.Secret) error {
	err := unix.Fsetxattr(int(f.Fd()), secretAttr, []byte(secret), 0)
	if errors.Is(err, unix.ENOTSUP) {
		return ErrXattrUnsupported
	}
	return err
}

func getSecret(f *os.File) (domain.Secret, bool, error) {
	fd := int(f.Fd())
	size, err := unix.Fgetxattr(fd, secretAttr, nil)
	if errors.Is(err, unix.ENODATA) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	buf := make([]byte, size)
	n, err := unix.Fgetxattr(fd, secretAttr, buf)
	if err != nil {
		return "", false, err
	}
	return domain.Secret(buf[:n]), true, nil
}
