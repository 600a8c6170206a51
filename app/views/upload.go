package views

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// Upload limits, matching what the backend accepts.
const (
	MaxUploadBytes = 10 << 20
)

// AcceptedExtensions are the data file types the upload form offers.
var AcceptedExtensions = []string{"csv", "txt", "xls", "xlsx", "dat"}

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoFile          = errors.New("no file selected")
)

// Upload is the data file picker. The chosen file survives navigation
// when the route is kept alive.
type Upload struct {
	file string
	size int64
}

// NewUpload returns an empty upload view.
func NewUpload() *Upload {
	return &Upload{}
}

// SetFile selects a file after checking its extension and size.
func (u *Upload) SetFile(name string, size int64) error {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return ErrNoFile
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !slices.Contains(AcceptedExtensions, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
	if size > MaxUploadBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	u.file, u.size = name, size
	return nil
}

// File returns the selected file name.
func (u *Upload) File() string {
	return u.file
}

// Unmount drops the selection.
func (u *Upload) Unmount() {
	u.file, u.size = "", 0
}

func (u *Upload) Render(w io.Writer) error {
	return render(w, "upload", struct {
		Accepted []string
		MaxMB    int
		File     string
	}{AcceptedExtensions, MaxUploadBytes >> 20, u.file})
}
