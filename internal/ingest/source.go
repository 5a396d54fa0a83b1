package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// SourceStore serves original corpus files by the source name chunks carry.
type SourceStore struct {
	dir string
}

// NewSourceStore returns a store over dir.
func NewSourceStore(dir string) *SourceStore {
	return &SourceStore{dir: dir}
}

// Open returns the file named name. Names with path components are
// rejected; a missing file is ERR_203, which callers report as a notice.
func (s *SourceStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, lexerrors.New(lexerrors.ErrCodeSourceMissing,
				fmt.Sprintf("source file %s is not available", name), err)
		}
		return nil, err
	}
	return f, nil
}

// Size returns the byte size of the named source.
func (s *SourceStore) Size(name string) (int64, error) {
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, lexerrors.New(lexerrors.ErrCodeSourceMissing,
				fmt.Sprintf("source file %s is not available", name), err)
		}
		return 0, err
	}
	return info.Size(), nil
}

func (s *SourceStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", lexerrors.New(lexerrors.ErrCodeInvalidPath,
			fmt.Sprintf("invalid source name %q", name), nil)
	}
	return filepath.Join(s.dir, name), nil
}
