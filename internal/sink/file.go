package sink

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FileSink persists documents under a root directory, mapping each key to a
// relative path. Parent directories are created lazily on write so the
// equity/daily and crypto/tick/{pair} subtrees appear as needed.
type FileSink struct {
	root string
}

func NewFileSink(root string) (*FileSink, error) {
	if root == "" {
		return nil, errors.New("file sink requires a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create sink root %s", root)
	}
	return &FileSink{root: root}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Read(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "read %s", key)
	}
	return data, true, nil
}

func (s *FileSink) Write(key string, data []byte) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", key)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

func (s *FileSink) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
