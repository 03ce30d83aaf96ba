package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fixcry/fixcry/internal/model"
)

// WriterFactory creates a Writer that writes to w.
type WriterFactory func(w io.Writer) Writer

// JSONFile returns a WriterFactory for the JSON report file format.
func JSONFile(opts ...JSONWriterOption) WriterFactory {
	return func(w io.Writer) Writer {
		return NewJSONWriter(w, opts...)
	}
}

// MarkdownFile returns a WriterFactory for Markdown report files.
func MarkdownFile() WriterFactory {
	return func(w io.Writer) Writer {
		return NewMarkdownWriter(w)
	}
}

// WriteFile renders report with the writer made by newWriter and stores it
// at path with mode 0600, creating missing parent directories.
//
// The report is rendered in memory first, so a rendering error never
// leaves a truncated file behind.
func WriteFile(path string, newWriter WriterFactory, report *model.DuplicateReport) error {
	var buf bytes.Buffer
	if _, err := newWriter(&buf).Write(report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
