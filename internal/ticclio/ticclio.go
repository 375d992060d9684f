// Package ticclio provides the shared I/O plumbing every ticcltools stage
// builds its file-format readers and writers on top of: transparent gzip
// support (corpora and frequency lists are routinely shipped as .gz) and the
// Logger interface library packages use to report progress and soft
// warnings without depending on a concrete logging library.
package ticclio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Logger is the minimal reporting surface library packages depend on.
// cmd/ticcl-* binaries satisfy it with a zerolog adapter; tests satisfy it
// with a no-op or a recording stub.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// Nop is a Logger that discards everything.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Open opens path for reading, transparently decompressing it if the name
// ends in ".gz". The returned closer closes both the gzip reader (if any)
// and the underlying file.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path) //nolint:gosec // stage inputs are operator-supplied paths, not attacker input
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening gzip %s: %w", path, err)
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	err := g.gz.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Create opens path for writing, transparently gzip-compressing it if the
// name ends in ".gz". The returned closer flushes and closes both layers.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path) //nolint:gosec // stage outputs are operator-supplied paths
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz := gzip.NewWriter(f)
	return &gzipWriteCloser{gz: gz, f: f}, nil
}

type gzipWriteCloser struct {
	gz *gzip.Writer
	f  *os.File
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipWriteCloser) Close() error {
	err := g.gz.Close()
	if cerr := g.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ScanLines wraps bufio.NewScanner with a generous buffer (corpus lines,
// especially anagram-hash lines with many '#'-joined words, can be long).
func ScanLines(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	const maxLine = 16 << 20 // 16 MiB
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, maxLine)
	return sc
}

// BufferedWriter wraps w in a bufio.Writer sized for bulk line output.
func BufferedWriter(w io.Writer) *bufio.Writer {
	return bufio.NewWriterSize(w, 64*1024)
}
