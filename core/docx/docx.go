// Package docx reads and writes WordprocessingML packages.
//
// A package is a zip container whose parts are kept as raw bytes in archive
// order. Editing only ever rewrites the main document part; every other part
// is copied through verbatim on save so unrelated content (styles, media,
// relationships) survives byte-for-byte.
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	lanceterrors "github.com/lancetdoc/lancet/core/errors"
	"github.com/lancetdoc/lancet/internal/validation"
)

const (
	// DocumentPart is the main WordprocessingML content part.
	DocumentPart = "word/document.xml"
	// ContentTypesPart declares content types for every part in the package.
	ContentTypesPart = "[Content_Types].xml"
)

// Package is an opened document container.
type Package struct {
	// Path is the source path, empty when opened from memory.
	Path string

	names []string
	parts map[string][]byte
}

// Open reads a package from disk.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lanceterrors.NewIO("read", path, err)
	}
	return OpenBytes(data, path)
}

// OpenBytes reads a package from an in-memory zip image. The path is used
// only for error reporting and may be empty.
func OpenBytes(data []byte, path string) (*Package, error) {
	if len(data) > validation.MaxFileSize {
		return nil, lanceterrors.NewPackage(path, fmt.Sprintf("file exceeds %d byte limit", validation.MaxFileSize))
	}
	if !validation.IsZipData(data) {
		return nil, lanceterrors.NewPackage(path, "not a zip archive")
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &lanceterrors.PackageError{Path: path, Reason: "unreadable zip archive", Err: err}
	}

	pkg := &Package{
		Path:  path,
		parts: make(map[string][]byte, len(zr.File)),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, &lanceterrors.PackageError{Path: path, Reason: "unreadable part " + f.Name, Err: err}
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &lanceterrors.PackageError{Path: path, Reason: "truncated part " + f.Name, Err: err}
		}
		pkg.names = append(pkg.names, f.Name)
		pkg.parts[f.Name] = content
	}

	if _, ok := pkg.parts[DocumentPart]; !ok {
		return nil, lanceterrors.NewPackage(path, "missing "+DocumentPart)
	}
	return pkg, nil
}

// Names returns the part names in archive order.
func (p *Package) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Part returns the raw bytes of a named part.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

// Document returns the raw bytes of the main document part.
func (p *Package) Document() []byte {
	return p.parts[DocumentPart]
}

// PartDigest returns the BLAKE3 digest of a named part.
func (p *Package) PartDigest(name string) (string, bool) {
	data, ok := p.parts[name]
	if !ok {
		return "", false
	}
	return Digest(data), true
}

// DocumentDigest returns the BLAKE3 digest of the main document part.
func (p *Package) DocumentDigest() string {
	return Digest(p.parts[DocumentPart])
}

// Write assembles a package image with document replacing the main document
// part and streams it to w. All other parts are copied verbatim in their
// original archive order.
func (p *Package) Write(w io.Writer, document []byte) error {
	zw := zip.NewWriter(w)
	for _, name := range p.names {
		fw, err := zw.Create(name)
		if err != nil {
			return &lanceterrors.SerializeError{Part: name, Message: "failed to create zip entry", Err: err}
		}
		content := p.parts[name]
		if name == DocumentPart {
			content = document
		}
		if _, err := fw.Write(content); err != nil {
			return &lanceterrors.SerializeError{Part: name, Message: "failed to write zip entry", Err: err}
		}
	}
	if err := zw.Close(); err != nil {
		return &lanceterrors.SerializeError{Message: "failed to finalize zip archive", Err: err}
	}
	return nil
}

// Bytes assembles a package image with document replacing the main document part.
func (p *Package) Bytes(document []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf, document); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the assembled package to disk.
func (p *Package) Save(path string, document []byte) error {
	data, err := p.Bytes(document)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return lanceterrors.NewIO("write", path, err)
	}
	return nil
}

// Digest computes the hex BLAKE3 digest of the given data.
func Digest(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
