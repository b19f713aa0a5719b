package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/JIMMY-KSU/modelstore/internal/container"
)

// ListOptions controls listings.
type ListOptions struct {
	IncludeChain bool // Also report chain member groups
}

// FileListing is the listing of one container file.
type FileListing struct {
	Path   string
	Models []container.Metadata
}

// ListModels returns the metadata of every model in a file, in insertion order.
// Payloads are never read.
func (s *Store) ListModels(ctx context.Context, path string, opts ListOptions) (models []container.Metadata, err error) {
	ctx, span := s.start(ctx, spanList, path, "")
	defer func() { s.finish(ctx, span, "list", err) }()

	models, err = s.listFile(path, opts)
	span.SetAttributes(attribute.Int(attrGroups, len(models)))
	return models, err
}

// ListModelsGlob lists every container matched by pattern.
//
// The pattern may name a file, a directory or a glob. Directories contribute the files with
// the store's extension; with recursive, subdirectories are walked too. A file named
// literally must be a container. Files reached through a glob or a directory that are not
// containers are skipped. Results are sorted by path.
func (s *Store) ListModelsGlob(ctx context.Context, pattern string, recursive bool, opts ListOptions) (out []FileListing, err error) {
	ctx, span := s.start(ctx, spanList, pattern, "")
	defer func() { s.finish(ctx, span, "list", err) }()

	paths, explicit, err := s.resolve(pattern, recursive)
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		models, err := s.listFile(p, opts)
		if err != nil {
			if explicit || !errors.Is(err, container.ErrIO) {
				return nil, err
			}
			s.log.DebugContext(ctx, "skipping file", "path", p, "error", err)
			continue
		}
		out = append(out, FileListing{Path: p, Models: models})
	}
	span.SetAttributes(attribute.Int(attrGroups, len(out)))
	return out, nil
}

func (s *Store) listFile(path string, opts ListOptions) ([]container.Metadata, error) {
	f, err := container.Open(path, s.containerOptions(true))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all := f.All()
	models := make([]container.Metadata, 0, len(all))
	for _, m := range all {
		if m.IsChainMember() && !opts.IncludeChain {
			continue
		}
		models = append(models, m)
	}
	return models, nil
}

// resolve expands a listing pattern into sorted file paths. explicit is true when the
// pattern named a single file.
func (s *Store) resolve(pattern string, recursive bool) ([]string, bool, error) {
	if !hasGlobMeta(pattern) {
		info, err := os.Stat(pattern)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, &container.NotFoundError{Path: pattern}
		}
		if err != nil {
			return nil, false, &container.IOError{Op: "stat", Path: pattern, Err: err}
		}
		if !info.IsDir() {
			return []string{pattern}, true, nil
		}
		paths, err := s.walk(pattern, recursive)
		return paths, false, err
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			add(m)
			continue
		}
		if !recursive {
			continue
		}
		found, err := s.walk(m, true)
		if err != nil {
			return nil, false, err
		}
		for _, p := range found {
			add(p)
		}
	}
	sort.Strings(paths)
	return paths, false, nil
}

// walk collects container files under dir.
func (s *Store) walk(dir string, recursive bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), s.extension) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, &container.IOError{Op: "walk", Path: dir, Err: err}
	}
	sort.Strings(paths)
	return paths, nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[`)
}
