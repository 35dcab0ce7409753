// Package attach is the file picker's validator. It checks size and
// extension before a file is handed to the chat store, which trusts its
// input.
package attach

import (
	"errors"
	"fmt"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kingrea/chathub/internal/domain"
)

// DefaultMaxSize is 10 MB.
const DefaultMaxSize int64 = 10 * 1024 * 1024

// AllowedExtensions lists the accepted file types in display order.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf", ".txt", ".doc", ".docx"}

var (
	ErrTooLarge        = errors.New("attach: file too large")
	ErrUnsupportedType = errors.New("attach: file type not supported")
)

// ValidationError carries the message shown in the picker. It unwraps to
// ErrTooLarge or ErrUnsupportedType.
type ValidationError struct {
	Reason  error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return e.Reason }

// File is a picked file.
type File struct {
	Path string
	Name string
	Size int64
	Type string
}

// Open stats path and fills in the name, size and MIME type.
func Open(path string) (File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return File{}, fmt.Errorf("attach: path is required")
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("attach: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("attach: %s is a directory", path)
	}
	name := info.Name()
	return File{
		Path: path,
		Name: name,
		Size: info.Size(),
		Type: TypeFor(name),
	}, nil
}

// TypeFor derives a MIME type from the file extension, falling back to
// application/octet-stream.
func TypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); t != "" {
		if base, _, ok := strings.Cut(t, ";"); ok {
			return strings.TrimSpace(base)
		}
		return t
	}
	return "application/octet-stream"
}

// Validate rejects files over maxSize and files whose extension is not
// allowed. A non-positive maxSize means DefaultMaxSize.
func Validate(f File, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if f.Size > maxSize {
		return &ValidationError{
			Reason:  ErrTooLarge,
			Message: "File size must be less than " + FormatSize(maxSize),
		}
	}
	if !allowed(extension(f.Name)) {
		return &ValidationError{
			Reason:  ErrUnsupportedType,
			Message: "File type not supported. Allowed types: " + strings.Join(AllowedExtensions, ", "),
		}
	}
	return nil
}

// KindFor classifies a file as an image message or a generic file message.
func KindFor(f File) domain.MessageKind {
	if strings.HasPrefix(f.Type, "image/") {
		return domain.KindImage
	}
	return domain.KindFile
}

// Announcement is the message text posted alongside an upload.
func Announcement(f File) string {
	if KindFor(f) == domain.KindImage {
		return "Shared an image: " + f.Name
	}
	return "Shared a file: " + f.Name
}

// FormatSize renders a byte count as "1.5 KB" with at most two decimals.
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + units[i]
}

// extension mirrors the picker's rule: everything after the last dot, or
// the whole name when there is none.
func extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i:])
	}
	return "." + strings.ToLower(name)
}

func allowed(ext string) bool {
	for _, a := range AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}
