package loader

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/fixcry/fixcry/internal/model"
)

// DefaultExtension is the file extension of issue files.
const DefaultExtension = ".json"

// ErrDirectoryRead is returned when the input directory is missing or
// cannot be listed. The accompanying Result is empty, never nil.
var ErrDirectoryRead = errors.New("failed to read issue directory")

// validate checks the structural constraints declared on model.IssueRecord.
// Field names in errors use the JSON names found in the files.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Options configures Load.
type Options struct {
	// Extensions are the recognized file extensions, matched
	// case-insensitively. Empty means DefaultExtension only.
	Extensions []string

	// Workers is the number of files parsed concurrently.
	// Values below 2 parse files one after another.
	Workers int

	// Logger receives per-file warnings. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns options that load *.json files sequentially.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{DefaultExtension},
		Workers:    1,
	}
}

// Result is the outcome of loading a directory.
type Result struct {
	// Records are the usable issues in filename order.
	Records []*model.IssueRecord

	// Skipped lists files that were read but not used, with the reason.
	Skipped []model.SkippedFile

	// Fingerprint is a hex BLAKE2b-256 digest over the names and contents
	// of the files behind Records. Empty when nothing was loaded.
	Fingerprint string
}

// parsed is the outcome of reading a single file.
type parsed struct {
	record *model.IssueRecord
	raw    []byte
	err    error
}

// Load reads every issue file in dir.
//
// A directory that cannot be read is logged and yields an empty Result
// together with an error wrapping ErrDirectoryRead. A single file that
// cannot be read, parsed or validated is logged, listed in Result.Skipped
// and does not stop the remaining files from loading. A file whose id was
// already loaded from an earlier file is skipped the same way.
func Load(ctx context.Context, dir string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("failed to load issues", "dir", dir, "error", err)
		return &Result{}, fmt.Errorf("%w %s: %w", ErrDirectoryRead, dir, err)
	}

	exts := extensionSet(opts.Extensions)
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := exts[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		files = append(files, e.Name())
	}

	results, err := parseAll(ctx, dir, files, opts.Workers)
	if err != nil {
		return &Result{}, err
	}

	res := &Result{}
	seen := make(map[string]string, len(files))
	hash, _ := blake2b.New256(nil) //nolint:errcheck // unkeyed BLAKE2b never fails

	for i, name := range files {
		p := results[i]
		reason := ""
		switch {
		case p.err != nil:
			reason = p.err.Error()
		default:
			if first, dup := seen[p.record.ID]; dup {
				reason = fmt.Sprintf("duplicate id %q (first seen in %s)", p.record.ID, first)
			}
		}
		if reason != "" {
			logger.Warn("skipping issue file", "file", name, "reason", reason)
			res.Skipped = append(res.Skipped, model.SkippedFile{File: name, Reason: reason})
			continue
		}

		if ts := p.record.SubmittedAt; ts.Unparsed() {
			logger.Warn("unrecognized submission time, treating issue as undated",
				"file", name,
				"submitted_at", ts.Raw,
			)
		}

		seen[p.record.ID] = name
		res.Records = append(res.Records, p.record)

		hash.Write([]byte(name))
		hash.Write([]byte{0})
		hash.Write(p.raw)
		hash.Write([]byte{0})
	}

	if len(res.Records) > 0 {
		res.Fingerprint = hex.EncodeToString(hash.Sum(nil))
	}

	logger.Info("issues loaded",
		"dir", dir,
		"loaded", len(res.Records),
		"skipped", len(res.Skipped),
	)

	return res, nil
}

// parseAll parses files and returns the outcomes in the order of files.
// With more than one worker the files are parsed concurrently; the order of
// the returned slice does not depend on the worker count.
func parseAll(ctx context.Context, dir string, files []string, workers int) ([]parsed, error) {
	results := make([]parsed, len(files))

	if workers < 2 {
		for i, name := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = parseFile(dir, name)
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, name := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each goroutine writes only its own slot.
			results[i] = parseFile(dir, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseFile reads, decodes and validates a single issue file.
func parseFile(dir, name string) parsed {
	path := filepath.Join(dir, name)

	raw, err := os.ReadFile(path) //nolint:gosec // reading the user's issue directory is the point
	if err != nil {
		return parsed{err: fmt.Errorf("failed to read file: %w", err)}
	}

	var record model.IssueRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return parsed{err: fmt.Errorf("invalid issue JSON: %w", err)}
	}

	record.ID = strings.TrimSpace(record.ID)
	if err := validate.Struct(&record); err != nil {
		return parsed{err: validationError(err)}
	}

	record.File = name
	record.Path = path

	return parsed{record: &record, raw: raw}
}

// validationError turns validator output into a short readable error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid issue: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("missing required field %q", fe.Field()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("field %q failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid issue: %s", strings.Join(msgs, "; "))
}

func extensionSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{DefaultExtension}
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}
