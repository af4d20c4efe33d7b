package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cbeley/GoogleTakeoutLocationHistoryParser/internal/errors"
)

// rename is swapped in tests to fail partway through a set.
var rename = os.Rename

// DefaultMaxParallel bounds concurrent file writes when WriteAll is given 0.
const DefaultMaxParallel = 4

// WriteAll writes files into dir as one set. Every payload goes to a temp
// file next to its destination first; temp files are renamed into place
// only once all of them were written and synced and every destination was
// checked. A failure before the renames removes the temp files and leaves
// dir untouched. A rename that still fails midway leaves the files renamed
// before it in place; the WRITE_FAILED error lists them under
// Details["renamed"] and the remaining temp files are removed. Returns the
// final paths in file order.
func WriteAll(ctx context.Context, dir string, files []File, maxParallel int) ([]string, error) {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewWriteFailed(dir, fmt.Errorf("create output directory: %w", err))
	}

	suffix := "." + strings.ToLower(ulid.Make().String()) + ".tmp"
	finals := make([]string, len(files))
	temps := make([]string, len(files))
	for i, f := range files {
		if f.Name != filepath.Base(f.Name) || f.Name == "." || f.Name == ".." {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("output file name %q must not contain a directory", f.Name))
		}
		finals[i] = filepath.Join(dir, f.Name)
		temps[i] = finals[i] + suffix
	}

	success := false
	defer func() {
		if !success {
			for _, tmp := range temps {
				os.Remove(tmp)
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeTemp(temps[i], f.Payload); err != nil {
				return errors.NewWriteFailed(finals[i], err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Check every destination before the first rename so a bad one does
	// not leave half of the set in place.
	for _, final := range finals {
		info, err := os.Lstat(final)
		if err != nil {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil, errors.NewWriteFailed(final, fmt.Errorf("destination is a symlink"))
		}
		if info.IsDir() {
			return nil, errors.NewWriteFailed(final, fmt.Errorf("destination is a directory"))
		}
	}

	for i, final := range finals {
		if err := rename(temps[i], final); err != nil {
			if runtime.GOOS == "windows" {
				if _, statErr := os.Stat(final); statErr == nil {
					err = fmt.Errorf("destination exists; overwriting is not supported on Windows")
				}
			}
			wErr := errors.NewWriteFailed(final, err)
			wErr.Details["renamed"] = append([]string{}, finals[:i]...)
			return nil, wErr
		}
	}

	success = true
	return finals, nil
}

func writeTemp(path string, payload []byte) (err error) {
	file, err := openFileNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer func() {
		if file != nil {
			file.Close()
		}
	}()

	if _, err := file.Write(payload); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	file = nil
	return nil
}

// SanitizeBaseName makes s safe to use as an output file name prefix.
// Path separators and ".." become dashes, control characters are dropped.
func SanitizeBaseName(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(strings.TrimSpace(s), "-")

	if s == "" {
		s = "out"
	}
	return s
}
