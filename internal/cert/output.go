package cert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputExistsError reports an output path that is already taken. Outputs
// are never overwritten.
type OutputExistsError struct {
	Path    string
	Suggest string
}

func (e *OutputExistsError) Error() string {
	if strings.TrimSpace(e.Suggest) != "" && e.Suggest != e.Path {
		return fmt.Sprintf("output already exists: %s (try: %s)", e.Path, e.Suggest)
	}
	return fmt.Sprintf("output already exists: %s", e.Path)
}

func IsOutputExists(err error) bool {
	var oe *OutputExistsError
	return errors.As(err, &oe)
}

// PFXPath returns <dir>/<subjectName>.pfx.
func PFXPath(dir, subjectName string) (string, error) {
	name := strings.TrimSpace(subjectName)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", invalidRequest("subject name %q cannot be used as a file name", subjectName)
	}
	return filepath.Join(dir, name+".pfx"), nil
}

// SavePFX writes c as a password-protected PFX to <Dir>/<SubjectName>.pfx.
// The directory is created first. An existing file is never modified: with
// SkipExisting the call succeeds with Written=false, with FailIfExists it
// returns an *OutputExistsError.
func (e *Engine) SavePFX(c *IssuedCertificate, exp Export) (SaveResult, error) {
	if c == nil || c.Certificate == nil {
		return SaveResult{}, invalidRequest("no certificate to save")
	}
	if strings.TrimSpace(exp.Dir) == "" {
		return SaveResult{}, invalidRequest("output directory required")
	}
	dest, err := PFXPath(exp.Dir, c.Certificate.Subject.CommonName)
	if err != nil {
		return SaveResult{}, err
	}
	res := SaveResult{Path: dest}

	if err := os.MkdirAll(exp.Dir, 0o755); err != nil {
		return res, &IOError{Op: "create output directory", Path: exp.Dir, Err: err}
	}
	if pathExists(dest) {
		return res, existing(dest, exp.IfExists)
	}

	data, err := e.ExportPFX(c, exp.Password)
	if err != nil {
		return res, err
	}

	tmp, err := newTempPath(dest)
	if err != nil {
		return res, &IOError{Op: "create temp file", Path: exp.Dir, Err: err}
	}
	defer os.Remove(tmp)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return res, &IOError{Op: "write", Path: tmp, Err: err}
	}

	if err := commitTempFile(tmp, dest, 0o600); err != nil {
		if IsOutputExists(err) {
			// Lost a race with another writer of the same name.
			return res, existing(dest, exp.IfExists)
		}
		return res, &IOError{Op: "write", Path: dest, Err: err}
	}
	res.Written = true
	return res, nil
}

func existing(dest string, policy ExistingFilePolicy) error {
	if policy == FailIfExists {
		return existsError(dest)
	}
	return nil
}

// NextAvailablePath returns dest, or the first free "name-N.ext" sibling.
func NextAvailablePath(dest string) string {
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	candidate := dest
	for n := 1; pathExists(candidate) && n <= 10_000; n++ {
		candidate = stem + "-" + strconv.Itoa(n) + ext
	}
	return candidate
}

func existsError(dest string) *OutputExistsError {
	return &OutputExistsError{Path: dest, Suggest: NextAvailablePath(dest)}
}

func pathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WriteFileExclusive creates dest and writes data; it fails with
// *OutputExistsError if dest is already there.
func WriteFileExclusive(dest string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, fs.ErrExist) {
		return existsError(dest)
	}
	if err != nil {
		return &IOError{Op: "create", Path: dest, Err: err}
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(dest)
		return &IOError{Op: "write", Path: dest, Err: werr}
	}
	return nil
}

// commitTempFile hard-links tmp to dest, which fails if dest exists, then
// drops tmp. Both must be in the same directory.
func commitTempFile(tmp, dest string, perm os.FileMode) error {
	defer os.Remove(tmp)
	if err := os.Link(tmp, dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return existsError(dest)
		}
		return err
	}
	return os.Chmod(dest, perm)
}

// newTempPath reserves a hidden, empty file next to dest.
func newTempPath(dest string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(dest), ".certforge-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
