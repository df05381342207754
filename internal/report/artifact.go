package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects how an artifact is compressed.
type Compression int

const (
	// CompressionNone writes plain JSON.
	CompressionNone Compression = iota
	// CompressionGzip writes gzip-compressed JSON.
	CompressionGzip
	// CompressionZstd writes zstd-compressed JSON.
	CompressionZstd
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// CompressionForPath picks the compression from the file extension:
// .gz is gzip, .zst is zstd, anything else is plain.
func CompressionForPath(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".zst":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// WriteArtifact writes terms to w as an indented JSON array, in the given
// order, compressed with c.
func WriteArtifact(w io.Writer, terms []string, c Compression) error {
	if terms == nil {
		terms = []string{}
	}
	data, err := json.MarshalIndent(terms, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	switch c {
	case CompressionGzip:
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := zw.Write(data); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	default:
		_, err := w.Write(data)
		return err
	}
}

// WriteArtifactFile writes terms to path, creating parent directories and
// choosing the compression from the extension. The data goes to a temporary
// file in the same directory that is renamed over path once complete, so an
// interrupted write never leaves a truncated artifact behind.
func WriteArtifactFile(path string, terms []string) (err error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err := WriteArtifact(f, terms, CompressionForPath(path)); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// ReadArtifact reads a JSON array of terms written by WriteArtifact.
func ReadArtifact(r io.Reader, c Compression) ([]string, error) {
	switch c {
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	var terms []string
	if err := json.NewDecoder(r).Decode(&terms); err != nil {
		return nil, fmt.Errorf("invalid artifact: %w", err)
	}
	if terms == nil {
		return nil, errors.New("invalid artifact: not a JSON array")
	}
	return terms, nil
}

// ReadArtifactFile reads an artifact file, choosing the decompression from
// the extension.
func ReadArtifactFile(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArtifact(f, CompressionForPath(path))
}
