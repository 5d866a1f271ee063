// Package file tracks a generated source file between loading it from
// disk and writing it back. The file is only written when its contents
// changed, and generated code never overwrites a file that was not
// produced by dieselgen.
package file

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/mickamy/dieselgen/internal/errs"
)

// Signature is the first line of every generated file.
const Signature = "/* This file is generated and managed by dieselgen */"

// DeclKind is a module file declaration form.
type DeclKind int

const (
	// DeclModule is `pub mod name;`.
	DeclModule DeclKind = iota
	// DeclUse is `pub use name;`.
	DeclUse
)

func (k DeclKind) line(name string) string {
	if k == DeclUse {
		return "pub use " + name + ";"
	}
	return "pub mod " + name + ";"
}

// File is an in-memory copy of a file on disk.
type File struct {
	path     string
	contents string
	baseline string // contents as last read or written
	onDisk   bool
}

// Load reads path. A missing file loads as empty and is not created
// until Write.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &File{path: path}, nil
	case err != nil:
		return nil, errs.NewPathError("read", path, err)
	}
	s := string(b)
	return &File{path: path, contents: s, baseline: s, onDisk: true}, nil
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Contents returns the current in-memory contents.
func (f *File) Contents() string { return f.contents }

// Exists reports whether the file is on disk.
func (f *File) Exists() bool { return f.onDisk }

// Modified reports whether the contents differ from what is on disk.
func (f *File) Modified() bool { return f.contents != f.baseline }

// HasDecl reports whether a line holds the declaration.
func (f *File) HasDecl(kind DeclKind, name string) bool {
	want := kind.line(name)
	for _, l := range strings.Split(f.contents, "\n") {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

// AddDecl appends the declaration on its own line.
func (f *File) AddDecl(kind DeclKind, name string) {
	c := strings.TrimSpace(f.contents)
	if c != "" {
		c += "\n"
	}
	f.contents = c + kind.line(name) + "\n"
}

// EnsureDecl adds the declaration unless it is already present.
func (f *File) EnsureDecl(kind DeclKind, name string) {
	if !f.HasDecl(kind, name) {
		f.AddDecl(kind, name)
	}
}

// RemoveDecl drops every line holding the declaration.
func (f *File) RemoveDecl(kind DeclKind, name string) {
	if !f.HasDecl(kind, name) {
		return
	}
	want := kind.line(name)
	lines := strings.Split(f.contents, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != want {
			kept = append(kept, l)
		}
	}
	c := strings.TrimSpace(strings.Join(kept, "\n"))
	if c != "" {
		c += "\n"
	}
	f.contents = c
}

// Replace sets the contents.
func (f *File) Replace(s string) { f.contents = s }

// ReplaceSilent sets the contents without marking the file modified.
func (f *File) ReplaceSilent(s string) {
	f.contents = s
	f.baseline = s
}

// HasSignature reports whether the file may be overwritten: it is empty or
// starts with Signature.
func (f *File) HasSignature() bool {
	return f.contents == "" || strings.HasPrefix(f.contents, Signature)
}

// EnsureSignature returns an error matching errs.ErrNoFileSignature when
// the file is not a generated one.
func (f *File) EnsureSignature() error {
	if f.HasSignature() {
		return nil
	}
	return errs.NewPathError("overwrite", f.path, errs.ErrNoFileSignature)
}

// Write stores the contents. It does nothing when the file is already on
// disk and unmodified.
func (f *File) Write() error {
	if f.onDisk && !f.Modified() {
		return nil
	}
	if err := os.WriteFile(f.path, []byte(f.contents), 0o644); err != nil {
		return errs.NewPathError("write", f.path, err)
	}
	f.baseline = f.contents
	f.onDisk = true
	return nil
}

// Delete removes the file from disk and returns its path.
func (f *File) Delete() (string, error) {
	if err := os.Remove(f.path); err != nil {
		return f.path, errs.NewPathError("delete", f.path, err)
	}
	f.onDisk = false
	return f.path, nil
}
