// Package stream resolves path arguments to readers and writers, opening
// gzip and zstd compressed files transparently.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Mode selects how a writer opens its file.
type Mode int

const (
	// Write truncates an existing file.
	Write Mode = iota
	// Append adds to the end of an existing file.
	Append
)

// Codec identifies the compression applied to a file.
type Codec int

const (
	Plain Codec = iota
	Gzip
	Zstd
)

// CodecFor returns the codec implied by the file extension of path.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".z":
		return Gzip
	case ".zst":
		return Zstd
	default:
		return Plain
	}
}

// IsStandard reports whether path names the process standard stream
// rather than a file.
func IsStandard(path string) bool {
	return path == "" || path == "-"
}

// OpenReader opens path for reading, decompressing on the fly when the
// extension calls for it.
func OpenReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch CodecFor(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("gzip reader %s: %w", path, err)
		}

		return &compressedReader{Reader: zr, closers: []io.Closer{zr, f}}, nil

	case Zstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()

			return nil, fmt.Errorf("zstd reader %s: %w", path, err)
		}

		rc := dec.IOReadCloser()

		return &compressedReader{Reader: rc, closers: []io.Closer{rc, f}}, nil
	}

	return f, nil
}

// OpenWriter opens path for writing. With createDir set, a missing parent
// directory is created first.
func OpenWriter(path string, mode Mode, createDir bool) (io.WriteCloser, error) {
	if createDir {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create dir %s: %w", dir, err)
			}
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if mode == Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}

	var newEnc func(io.Writer) (encoder, error)

	switch CodecFor(path) {
	case Gzip:
		newEnc = func(w io.Writer) (encoder, error) { return gzip.NewWriter(w), nil }
	case Zstd:
		newEnc = func(w io.Writer) (encoder, error) { return zstd.NewWriter(w) }
	default:
		return f, nil
	}

	enc, err := newEnc(f)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("compressed writer %s: %w", path, err)
	}

	return &compressedWriter{enc: enc, newEnc: newEnc, file: f}, nil
}

// Flush pushes buffered bytes of w to the underlying file when w supports
// it. Other writers are left alone.
func Flush(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}

	return nil
}

// Finish completes the compressed member written so far by w, leaving the
// file open. Later writes start a new member; readers see the members as
// one concatenated stream. Writers without compression are only flushed.
func Finish(w io.Writer) error {
	if f, ok := w.(interface{ Finish() error }); ok {
		return f.Finish()
	}

	return Flush(w)
}

type encoder interface {
	io.WriteCloser
	Flush() error
}

// compressedWriter holds a nil enc between Finish and the next Write.
type compressedWriter struct {
	enc    encoder
	newEnc func(io.Writer) (encoder, error)
	file   *os.File
}

func (w *compressedWriter) Write(p []byte) (int, error) {
	if w.enc == nil {
		enc, err := w.newEnc(w.file)
		if err != nil {
			return 0, fmt.Errorf("restart compressed stream: %w", err)
		}

		w.enc = enc
	}

	return w.enc.Write(p)
}

func (w *compressedWriter) Flush() error {
	if w.enc == nil {
		return nil
	}

	return w.enc.Flush()
}

func (w *compressedWriter) Finish() error {
	if w.enc == nil {
		return nil
	}

	err := w.enc.Close()
	w.enc = nil

	return err
}

// Close finishes the compressed stream before closing the file.
func (w *compressedWriter) Close() error {
	return errors.Join(w.Finish(), w.file.Close())
}

// Name returns the path of the underlying file.
func (w *compressedWriter) Name() string {
	return w.file.Name()
}

type compressedReader struct {
	io.Reader
	closers []io.Closer
}

func (r *compressedReader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}

	return errors.Join(errs...)
}
