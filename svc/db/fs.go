package db

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pastabin/pkg/domain"
	"pastabin/svc/util"

	"github.com/pkg/errors"
)

// staleTempAge is how old a staging file must be before NewFS removes it.
const staleTempAge = time.Hour

// secretAttr names the extended attribute holding a paste's secret.
const secretAttr = "user.pastabin.secret"

var ErrXattrUnsupported = errors.New("extended attributes not supported by storage dir")

// FS keeps one file per paste under dir. The secret lives in an extended
// attribute of the same inode, so content and secret appear and vanish
// together.
type FS struct {
	dir string
}

func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	f := &FS{dir: dir}
	f.sweep(time.Now().Add(-staleTempAge))
	if err := f.checkXattr(); err != nil {
		return nil, err
	}
	return f, nil
}

// sweep removes staging files older than cutoff left behind by a crash.
func (f *FS) sweep(cutoff time.Time) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		util.Warn().Err(err).Str("dir", f.dir).Msg("failed to list storage dir")
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, ".tmp-") && !strings.HasPrefix(name, ".xattr-") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			util.Warn().Err(err).Str("file", name).Msg("failed to remove stale temp file")
			continue
		}
		util.Info().Str("file", name).Msg("removed stale temp file")
	}
}

func (f *FS) checkXattr() error {
	tmp, err := os.CreateTemp(f.dir, ".xattr-*")
	if err != nil {
		return errors.Wrap(err, "check storage dir")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	return setSecret(tmp, "check")
}

func (f *FS) path(id domain.PasteID) string {
	return filepath.Join(f.dir, id.String())
}

// Create stages the paste in a temp file and hard-links it into place.
// Link refuses an existing name, which makes the reservation exclusive.
func (f *FS) Create(ctx context.Context, id domain.PasteID, content []byte, secret domain.Secret) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return errors.New("empty id")
	}
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	defer os.Remove(tmp.Name())
	if err := f.stage(tmp, content, secret); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp")
	}
	if err := os.Link(tmp.Name(), f.path(id)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return domain.ErrSlotTaken
		}
		return errors.Wrap(err, "link paste")
	}
	return nil
}

func (f *FS) stage(tmp *os.File, content []byte, secret domain.Secret) error {
	if _, err := tmp.Write(content); err != nil {
		return errors.Wrap(err, "write content")
	}
	if secret != "" {
		if err := setSecret(tmp, secret); err != nil {
			return errors.Wrap(err, "attach secret")
		}
	}
	return errors.Wrap(tmp.Sync(), "sync temp")
}

func (f *FS) Read(ctx context.Context, id domain.PasteID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, domain.ErrPasteNotFound
	}
	data, err := os.ReadFile(f.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrPasteNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "read paste")
	}
	return data, nil
}

// Delete checks the secret on the open inode and only unlinks the name if
// it still points at that inode.
func (f *FS) Delete(ctx context.Context, id domain.PasteID, authorize domain.Authorize) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return domain.ErrPasteNotFound
	}
	p := f.path(id)
	file, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrPasteNotFound
	}
	if err != nil {
		return errors.Wrap(err, "open paste")
	}
	defer file.Close()
	secret, ok, err := getSecret(file)
	if err != nil {
		return errors.Wrap(err, "read secret")
	}
	if err := authorize(secret, ok); err != nil {
		return err
	}
	opened, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat paste")
	}
	current, err := os.Lstat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrPasteNotFound
	}
	if err != nil {
		return errors.Wrap(err, "stat paste")
	}
	if !os.SameFile(opened, current) {
		return domain.ErrPasteNotFound
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrPasteNotFound
		}
		return errors.Wrap(err, "remove paste")
	}
	return nil
}

func (f *FS) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := os.Stat(f.dir)
	if err != nil {
		return errors.Wrap(err, "stat storage dir")
	}
	if !st.IsDir() {
		return errors.Errorf("%s is not a directory", f.dir)
	}
	return nil
}

func (f *FS) Close() error {
	return nil
}
