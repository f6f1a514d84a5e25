// Package mycnf discovers a MySQL option file hierarchy on a remote host and
// replicates it to another host with a fresh server identifier.
package mycnf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/logger"
	"github.com/yairfalse/kaksonen/internal/remote"
)

const (
	includeDirDirective  = "!includedir"
	includeFileDirective = "!include"
)

// Hierarchy is the ordered list of option files reachable from a root file.
// The root is always first; includes follow depth-first in directive order.
type Hierarchy struct {
	Root      string
	Fragments []*Fragment
}

// Paths returns the fragment paths in traversal order
func (h *Hierarchy) Paths() []string {
	paths := make([]string, 0, len(h.Fragments))
	for _, f := range h.Fragments {
		paths = append(paths, f.Path)
	}
	return paths
}

// Tree walks option files on one host
type Tree struct {
	exec remote.Executor
	log  logger.Logger
}

// NewTree creates a Tree reading through exec
func NewTree(exec remote.Executor, log logger.Logger) *Tree {
	return &Tree{
		exec: exec,
		log:  log.WithField("host", exec.Host()),
	}
}

// FindRootConfig returns the first candidate that can be read. Candidates
// that are missing or unreadable are skipped; a transport failure of any
// other kind is returned.
func (t *Tree) FindRootConfig(ctx context.Context, candidates []string) (string, error) {
	for _, candidate := range candidates {
		_, err := t.exec.TextContent(ctx, candidate)
		if err == nil {
			t.log.WithField("path", candidate).Debug("found root option file")
			return candidate, nil
		}

		var exitErr *remote.ExitError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &exitErr) {
			t.log.WithField("path", candidate).Debug("option file candidate not readable")
			continue
		}
		return "", err
	}
	return "", kerrors.ConfigNotFoundError(t.exec.Host(), candidates)
}

// Discover reads root and every file it includes. Read failures are fatal;
// parsing happens later and never fails the walk.
func (t *Tree) Discover(ctx context.Context, root string) (*Hierarchy, error) {
	root = path.Clean(root)
	h := &Hierarchy{Root: root}
	visited := make(map[string]bool)

	if err := t.walk(ctx, root, visited, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (t *Tree) walk(ctx context.Context, file string, visited map[string]bool, h *Hierarchy) error {
	if visited[file] {
		t.log.WithField("path", file).Warn("option file included more than once, skipping")
		return nil
	}
	visited[file] = true

	text, err := t.exec.TextContent(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	h.Fragments = append(h.Fragments, &Fragment{Path: file, Text: text})

	base := path.Dir(file)
	for _, line := range strings.Split(text, "\n") {
		directive, target, ok := parseDirective(line)
		if !ok {
			continue
		}
		target = resolve(base, target)

		switch directive {
		case includeDirDirective:
			names, err := t.exec.ListFiles(ctx, target, false, true)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", target, err)
			}
			t.log.WithFields(map[string]interface{}{
				"dir":   target,
				"files": names,
			}).Debug("expanding include directory")
			for _, name := range names {
				if err := t.walk(ctx, path.Join(target, name), visited, h); err != nil {
					return err
				}
			}
		case includeFileDirective:
			if err := t.walk(ctx, target, visited, h); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseDirective recognizes "!include <file>" and "!includedir <dir>" lines
func parseDirective(line string) (directive, target string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", false
	}
	switch fields[0] {
	case includeDirDirective, includeFileDirective:
		return fields[0], fields[1], true
	}
	return "", "", false
}

// resolve interprets target relative to the including file's directory
func resolve(base, target string) string {
	if path.IsAbs(target) {
		return path.Clean(target)
	}
	return path.Join(base, target)
}
