package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
)

const (
	directoryPermissions = 0o755
	filePermissions      = 0o644
)

var (
	// ErrFileNotFound reports an input path that does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidEncoding reports an input file that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	// ErrCreateDirectory reports a failure to create the output directory.
	ErrCreateDirectory = errors.New("create output directory")
)

// FS is an abstract filesystem used across the app and tests.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
}

// ---------- OS-backed implementation ----------

type OS struct{}

func NewOS() OS { return OS{} }

func (OS) ReadFile(name string) ([]byte, error) { return os.ReadFile(filepath.Clean(name)) }
func (OS) WriteFile(name string, b []byte, p os.FileMode) error {
	return os.WriteFile(filepath.Clean(name), b, p)
}
func (OS) Stat(name string) (fs.FileInfo, error)     { return os.Stat(filepath.Clean(name)) }
func (OS) MkdirAll(path string, p os.FileMode) error { return os.MkdirAll(filepath.Clean(path), p) }

// ---------- In-memory implementation (for tests) ----------

type Mem struct{ Fs afero.Fs }

func NewMem() Mem { return Mem{Fs: afero.NewMemMapFs()} }

func (m Mem) ReadFile(name string) ([]byte, error) { return afero.ReadFile(m.Fs, filepath.Clean(name)) }
func (m Mem) WriteFile(name string, b []byte, p os.FileMode) error {
	return afero.WriteFile(m.Fs, filepath.Clean(name), b, p)
}
func (m Mem) Stat(name string) (fs.FileInfo, error) { return m.Fs.Stat(filepath.Clean(name)) }
func (m Mem) MkdirAll(path string, p os.FileMode) error {
	return m.Fs.MkdirAll(filepath.Clean(path), p)
}

// ---------- High-level façade used by the generation engine ----------

type Ops struct{ FS FS }

func NewOps(fs FS) Ops { return Ops{FS: fs} }

// LoadText reads the whole file at path as UTF-8 text. When trim is set,
// leading and trailing whitespace is removed.
func (o Ops) LoadText(path string, trim bool) (string, error) {
	data, err := o.FS.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, path)
	}
	text := string(data)
	if trim {
		text = strings.TrimSpace(text)
	}
	return text, nil
}

// WriteArtifact creates directory (and parents) when absent and overwrites
// directory/name with content. It returns the written path.
func (o Ops) WriteArtifact(directory, name, content string) (string, error) {
	if err := o.FS.MkdirAll(directory, directoryPermissions); err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrCreateDirectory, directory, err)
	}
	target := filepath.Join(directory, name)
	if err := o.FS.WriteFile(target, []byte(content), filePermissions); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

func (o Ops) FileExists(p string) bool { _, err := o.FS.Stat(p); return err == nil }
