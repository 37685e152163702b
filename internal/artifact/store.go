package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore writes files into one directory without ever exposing a partial file.
type FileStore struct {
	Dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

// Path returns the full path of name inside the store.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Exists reports whether name is present.
func (s *FileStore) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Read returns the contents of name.
func (s *FileStore) Read(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}

// Stage writes a temp file next to name and returns its path. The caller renames
// or removes it. On error the temp file is already gone.
func (s *FileStore) Stage(name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(s.Dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(tmp)
		return "", err
	}

	if err := write(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// WriteAtomic stages name and renames it into place.
func (s *FileStore) WriteAtomic(name string, write func(io.Writer) error) error {
	tmp, err := s.Stage(name, write)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.Path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", name, err)
	}
	syncDir(s.Dir)
	return nil
}

// Move renames src to dst, creating dst's directory.
func Move(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Link makes dst another name for src. When a hard link is not possible, such as
// across filesystems, the contents are copied instead.
func Link(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Link(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// syncDir flushes directory entries so renames survive a crash. Best effort:
// not every filesystem supports fsync on a directory.
func syncDir(dir string) {
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
}
