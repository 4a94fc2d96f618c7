package migrate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrLocked is returned while another run holds the lock file.
var ErrLocked = errors.New("migrate: another migration is in progress")

// Lock is an exclusive lock file holding a random token.
type Lock struct {
	fs    afero.Fs
	path  string
	token string
}

// AcquireLock creates the lock file at path. It fails with ErrLocked when
// the file already exists.
func AcquireLock(fs afero.Fs, path string) (*Lock, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("migrate: create lock %s: %w", path, err)
	}
	l := &Lock{fs: fs, path: path, token: uuid.NewString()}
	_, werr := f.WriteString(l.token)
	if err := errors.Join(werr, f.Close()); err != nil {
		_ = fs.Remove(path)
		return nil, fmt.Errorf("migrate: write lock %s: %w", path, err)
	}
	return l, nil
}

// Token returns the token written to the lock file.
func (l *Lock) Token() string { return l.token }

// Release removes the lock file if it still holds this lock's token.
func (l *Lock) Release() error {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return fmt.Errorf("migrate: read lock %s: %w", l.path, err)
	}
	if strings.TrimSpace(string(data)) != l.token {
		return fmt.Errorf("migrate: lock %s was taken over by another run", l.path)
	}
	return l.fs.Remove(l.path)
}
