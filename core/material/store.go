package material

import (
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"

	"github.com/trezcool/masomo-records/core"
)

// DefaultAllowedExtensions are the material types accepted when none are configured.
var DefaultAllowedExtensions = []string{"txt", "pdf", "mp3", "mp4"}

var (
	// errors
	ErrUnsupportedExtension = errors.New("file type not allowed")
	ErrInvalidName          = errors.New("invalid material name")

	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
)

// Replacement describes the outcome of Store.Replace.
type Replacement struct {
	Filename  string // new stored name
	Removed   string // previous stored name, if it was removed
	RemoveErr error  // set when the previous file could not be removed
}

// Store keeps uploaded material under a single root directory.
type Store struct {
	fs      afero.Fs
	allowed []string // sorted, lowercase
	logger  core.Logger
}

// NewStore returns a Store over fs, which is taken to be rooted at the upload directory.
func NewStore(fs afero.Fs, allowedExts []string, logger core.Logger) *Store {
	if len(allowedExts) == 0 {
		allowedExts = DefaultAllowedExtensions
	}
	allowed := make([]string, 0, len(allowedExts))
	for _, ext := range allowedExts {
		allowed = append(allowed, strings.TrimPrefix(core.CleanString(ext, true /* lower */), "."))
	}
	sort.Strings(allowed)
	return &Store{fs: fs, allowed: allowed, logger: logger}
}

// NewDiskStore returns a Store rooted at dir on the OS filesystem, creating dir if absent.
func NewDiskStore(dir string, allowedExts []string, logger core.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload root")
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir), allowedExts, logger), nil
}

// Fs exposes the underlying filesystem, rooted at the upload directory.
func (s *Store) Fs() afero.Fs { return s.fs }

// AllowedExtensions returns the accepted extensions, lowercase and without dots.
func (s *Store) AllowedExtensions() []string {
	return append([]string(nil), s.allowed...)
}

// IsAllowed reports whether filename carries an accepted extension (case-insensitive).
func (s *Store) IsAllowed(filename string) bool {
	ext := Ext(filename)
	if ext == "" {
		return false
	}
	i := sort.SearchStrings(s.allowed, ext)
	return i < len(s.allowed) && s.allowed[i] == ext
}

// Validate sanitizes declaredName and checks its extension.
// It returns the sanitized name, or a *core.ValidationError wrapping ErrUnsupportedExtension.
func (s *Store) Validate(declaredName string) (string, error) {
	name := SanitizeFilename(declaredName)
	if name == "" || !s.IsAllowed(name) {
		msg := fmt.Sprintf("File type not allowed for %q. Allowed: %s", declaredName, strings.Join(s.allowed, ", "))
		return "", core.NewValidationError(
			errors.Wrap(ErrUnsupportedExtension, msg),
			core.FieldError{Field: "material", Error: msg},
		)
	}
	return name, nil
}

// Save validates declaredName and writes r under the upload root, optionally under a namespace
// directory. An existing file with the same stored name is overwritten.
func (s *Store) Save(r io.Reader, declaredName string, namespace ...string) (string, error) {
	name, err := s.Validate(declaredName)
	if err != nil {
		return "", err
	}
	return s.write(r, name, namespace...)
}

// Replace stores a new file in place of old. old is removed first when its name differs from
// the new stored name; failing to remove it is reported in the Replacement, not returned.
func (s *Store) Replace(old string, r io.Reader, declaredName string, namespace ...string) (Replacement, error) {
	name, err := s.Validate(declaredName)
	if err != nil {
		return Replacement{}, err
	}

	var rpl Replacement
	stored, err := storedName(name, namespace...)
	if err != nil {
		return Replacement{}, err
	}
	if old != "" && old != stored {
		if err := s.Delete(old); err != nil {
			rpl.RemoveErr = err
			s.logger.Warn("removing replaced material", "path", old, "error", err)
		} else {
			rpl.Removed = old
		}
	}

	if rpl.Filename, err = s.write(r, name, namespace...); err != nil {
		return rpl, err
	}
	return rpl, nil
}

// Delete removes a stored file. A missing file is not an error.
// The file's namespace directory is removed too once it is empty.
func (s *Store) Delete(name string) error {
	name, err := checkName(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %s", name)
	}
	s.pruneDir(path.Dir(name))
	return nil
}

func (s *Store) pruneDir(dir string) {
	if dir == "." {
		return
	}
	empty, err := afero.IsEmpty(s.fs, dir)
	if err != nil || !empty {
		return
	}
	if err := s.fs.Remove(dir); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("removing empty upload directory", "path", dir, "error", err)
	}
}

// Open opens a stored file for reading.
func (s *Store) Open(name string) (afero.File, error) {
	name, err := checkName(name)
	if err != nil {
		return nil, err
	}
	return s.fs.Open(name)
}

// Exists reports whether a regular file is stored under name.
func (s *Store) Exists(name string) bool {
	name, err := checkName(name)
	if err != nil {
		return false
	}
	fi, err := s.fs.Stat(name)
	return err == nil && !fi.IsDir()
}

func (s *Store) write(r io.Reader, name string, namespace ...string) (string, error) {
	stored, err := storedName(name, namespace...)
	if err != nil {
		return "", err
	}
	if dir := path.Dir(stored); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrap(err, "creating upload directory")
		}
	}

	f, err := s.fs.OpenFile(stored, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", stored)
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", errors.Wrapf(err, "writing %s", stored)
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrapf(err, "closing %s", stored)
	}
	s.logger.Info("material stored", "path", stored)
	return stored, nil
}

func storedName(name string, namespace ...string) (string, error) {
	if len(namespace) == 0 || namespace[0] == "" {
		return name, nil
	}
	ns := SanitizeFilename(namespace[0])
	if ns == "" {
		return "", errors.Wrapf(ErrInvalidName, "namespace %q", namespace[0])
	}
	return ns + "/" + name, nil
}

// checkName accepts only names Save could have produced: one or two sanitized segments.
func checkName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	segs := strings.Split(name, "/")
	if name == "" || len(segs) > 2 {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	for _, seg := range segs {
		if seg == "" || SanitizeFilename(seg) != seg {
			return "", errors.Wrapf(ErrInvalidName, "%q", name)
		}
	}
	return name, nil
}

// SanitizeFilename turns a client supplied file name into a safe, flat ASCII name:
// path separators become underscores, characters outside [A-Za-z0-9_.-] are dropped
// and leading or trailing dots and underscores are trimmed. It may return "".
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(b.String())
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// Ext returns the lowercase extension of filename without the dot, or "".
func Ext(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// IsPDF reports whether filename has a .pdf extension (case-insensitive).
func IsPDF(filename string) bool {
	return Ext(filename) == "pdf"
}
