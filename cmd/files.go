package cmd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// textExtensions lists the file types a directory walk picks up. Files
// named explicitly on the command line skip this filter.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".text":     true,
	".rst":      true,
	".adoc":     true,
}

// maxFileBytes caps a single file. Matches the HTTP API's document body
// limit so a file indexable here is also uploadable there.
const maxFileBytes = 10 << 20

// collectFiles expands paths into the list of files to index. Directories
// are walked recursively, skipping dot-directories and non-text extensions.
// Oversized files abort for explicit arguments and are skipped with a
// warning during walks.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if info.Size() > maxFileBytes {
				return nil, fmt.Errorf("%s: exceeds the %d MB file limit", p, maxFileBytes>>20)
			}
			files = append(files, p)
			continue
		}
		walkErr := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !textExtensions[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Size() > maxFileBytes {
				slog.Warn("skipping oversized file", "path", path, "bytes", fi.Size())
				return nil
			}
			files = append(files, path)
			return nil
		})
		if walkErr != nil {
			return nil, fmt.Errorf("walking %s: %w", p, walkErr)
		}
	}
	return files, nil
}

// docIDForPath derives a stable document ID from a file path: the slugged
// base name plus a short hash of the absolute path. Re-running against the
// same file reuses the ID, so the engine supersedes the old index instead
// of accumulating duplicates.
func docIDForPath(absPath string) string {
	base := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	sum := sha256.Sum256([]byte(absPath))
	return slugify(base) + "-" + hex.EncodeToString(sum[:4])
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "doc"
	}
	return slug
}

// readDocument loads a file into a Document keyed by its absolute path.
func readDocument(path string) (knowledge.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return knowledge.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return knowledge.Document{
		ID:       docIDForPath(abs),
		Name:     filepath.Base(abs),
		Kind:     knowledge.KindUploadedFile,
		Content:  string(content),
		Metadata: map[string]string{"path": abs},
	}, nil
}

// indexPaths indexes every file under the given paths, writing progress to
// w (pass io.Discard to index quietly). It returns how many files were
// indexed; per-file failures are joined into the returned error and do not
// stop the remaining files.
func indexPaths(ctx context.Context, engine *knowledge.Engine, paths []string, w io.Writer) (int, error) {
	files, err := collectFiles(paths)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no indexable files under %s", strings.Join(paths, ", "))
	}

	indexed := 0
	var errs []error
	for _, path := range files {
		doc, err := readDocument(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "Indexing %s\n", doc.Name)
		result, err := engine.Index(ctx, doc, knowledge.WithProgress(func(pct int, msg string) {
			fmt.Fprintf(w, "  %3d%% %s\n", pct, msg)
		}))
		if err != nil {
			errs = append(errs, fmt.Errorf("indexing %s: %w", path, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		indexed++
		fmt.Fprintf(w, "%s: %d chunks, %d vectors in %s\n",
			doc.Name, result.ChunkCount, result.VectorCount, result.Elapsed.Round(time.Millisecond))
	}
	return indexed, errors.Join(errs...)
}
