package xmlstore

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/roach88/factlog/internal/fact"
)

// Option configures a file-backed store.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// readDocument decodes the XML document at path into v.
// The returned error wraps os.ErrNotExist when the file is absent.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeDocument encodes v as an indented XML document and writes it to path
// atomically using the temp-file, fsync, rename pattern.
func writeDocument(path string, v any) error {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".xml-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}
	if _, err := io.WriteString(tmp, xml.Header); err != nil {
		return fail("writing header", err)
	}
	if _, err := tmp.Write(body); err != nil {
		return fail("writing document", err)
	}
	if _, err := io.WriteString(tmp, "\n"); err != nil {
		return fail("writing newline", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// checkText rejects strings a document cannot hold unchanged: invalid UTF-8
// and characters outside the XML Char production. encoding/xml would write
// both as U+FFFD.
func checkText(field, s string) error {
	if !utf8.ValidString(s) {
		return fact.NewInvalidArgumentError(fmt.Sprintf("%s %q is not valid UTF-8", field, s))
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fact.NewInvalidArgumentError(fmt.Sprintf("%s %q contains %U, which XML cannot store", field, s, r))
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// checkTriple applies checkText to each part of a triple.
func checkTriple(entity, attribute, value string) error {
	if err := checkText("entity", entity); err != nil {
		return err
	}
	if err := checkText("attribute", attribute); err != nil {
		return err
	}
	return checkText("value", value)
}
