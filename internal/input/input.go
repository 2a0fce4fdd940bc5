// Package input opens LDIF files for the parser. It decodes the file's
// character set to UTF-8 unless asked for raw bytes, and can report read
// progress on stderr.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingAuto sniffs a byte order mark and falls back to UTF-8.
const EncodingAuto = "auto"

// Options controls how a file is opened.
type Options struct {
	// Encoding is EncodingAuto or a WHATWG label such as "utf-16le" or
	// "windows-1252". Empty means EncodingAuto.
	Encoding string

	// Raw returns the file's bytes unchanged. Encoding is ignored.
	Raw bool

	// Progress draws a byte progress bar on ProgressWriter (stderr when nil).
	Progress       bool
	ProgressWriter io.Writer
}

// Decoder returns a transformer converting text in the named encoding to
// UTF-8. A byte order mark always takes precedence over the name.
func Decoder(name string) (transform.Transformer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == EncodingAuto {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// File is an opened input.
type File struct {
	file   *os.File
	reader io.Reader
	bar    *progressbar.ProgressBar
}

// Open opens path for reading according to opts.
func Open(path string, opts Options) (*File, error) {
	var decoder transform.Transformer
	if !opts.Raw {
		var err error
		if decoder, err = Decoder(opts.Encoding); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	in := &File{file: f}
	var raw io.Reader = f

	if opts.Progress {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		in.bar = newBar(info.Size(), filepath.Base(path), opts.ProgressWriter)
		raw = io.TeeReader(f, in.bar)
	}

	in.reader = raw
	if decoder != nil {
		in.reader = transform.NewReader(raw, decoder)
	}
	return in, nil
}

func newBar(size int64, name string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (f *File) Read(p []byte) (int, error) {
	return f.reader.Read(p)
}

// Close finishes the progress bar, if any, and closes the file.
func (f *File) Close() error {
	if f.bar != nil {
		_ = f.bar.Finish()
	}
	return f.file.Close()
}
