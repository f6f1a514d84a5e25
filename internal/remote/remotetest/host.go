// Package remotetest provides an in-memory remote.Executor for tests.
package remotetest

import (
	"context"
	"io/fs"
	"path"
	"strings"
	"sync"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
	"github.com/yairfalse/kaksonen/internal/remote"
)

// Handler answers a command matched by prefix
type Handler func(cmd string) (remote.Result, error)

// Write records one WriteContent call
type Write struct {
	Path    string
	Content string
}

type handlerEntry struct {
	prefix string
	fn     Handler
}

// Host is a scripted host. Files and directory listings live in memory;
// commands are answered by the first registered handler whose prefix
// matches, and unmatched commands succeed with empty output.
type Host struct {
	name string
	port int

	mu         sync.Mutex
	files      map[string]string
	dirs       map[string][]string
	handlers   []handlerEntry
	failReads  map[string]error
	failWrites map[string]error
	commands   []string
	writes     []Write
}

var _ remote.Executor = (*Host)(nil)

// NewHost creates an empty host
func NewHost(name string, port int) *Host {
	return &Host{
		name:       name,
		port:       port,
		files:      make(map[string]string),
		dirs:       make(map[string][]string),
		failReads:  make(map[string]error),
		failWrites: make(map[string]error),
	}
}

// AddFile stores content at p
func (h *Host) AddFile(p, content string) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[path.Clean(p)] = content
	return h
}

// AddDir registers a directory listing, returned in the given order
func (h *Host) AddDir(p string, names ...string) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirs[path.Clean(p)] = append([]string(nil), names...)
	return h
}

// Handle answers commands starting with prefix
func (h *Host) Handle(prefix string, fn Handler) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = append(h.handlers, handlerEntry{prefix: prefix, fn: fn})
	return h
}

// FailRead makes TextContent of p fail with err
func (h *Host) FailRead(p string, err error) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failReads[path.Clean(p)] = err
	return h
}

// FailWrite makes WriteContent of p fail with err
func (h *Host) FailWrite(p string, err error) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failWrites[path.Clean(p)] = err
	return h
}

// File returns the current content of p
func (h *Host) File(p string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	content, ok := h.files[path.Clean(p)]
	return content, ok
}

// Commands returns every executed command in order
func (h *Host) Commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.commands...)
}

// Writes returns every WriteContent call in order
func (h *Host) Writes() []Write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Write(nil), h.writes...)
}

func (h *Host) Host() string { return h.name }

func (h *Host) Port() int { return h.port }

func (h *Host) Execute(ctx context.Context, cmd string) (remote.Result, error) {
	if err := ctx.Err(); err != nil {
		return remote.Result{}, kerrors.TransportError(h.name, err)
	}

	h.mu.Lock()
	h.commands = append(h.commands, cmd)
	var handler Handler
	for _, entry := range h.handlers {
		if strings.HasPrefix(cmd, entry.prefix) {
			handler = entry.fn
			break
		}
	}
	h.mu.Unlock()

	if handler == nil {
		return remote.Result{}, nil
	}

	result, err := handler(cmd)
	if err != nil {
		if !kerrors.IsUserError(err) {
			err = kerrors.TransportError(h.name, err)
		}
		return result, err
	}
	return result, nil
}

func (h *Host) TextContent(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", kerrors.TransportError(h.name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p = path.Clean(p)
	if err, ok := h.failReads[p]; ok {
		return "", kerrors.TransportError(h.name, err)
	}
	content, ok := h.files[p]
	if !ok {
		return "", kerrors.TransportError(h.name, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist})
	}
	return content, nil
}

func (h *Host) WriteContent(ctx context.Context, p, content string) error {
	if err := ctx.Err(); err != nil {
		return kerrors.TransportError(h.name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p = path.Clean(p)
	if err, ok := h.failWrites[p]; ok {
		return kerrors.TransportError(h.name, err)
	}
	h.writes = append(h.writes, Write{Path: p, Content: content})
	h.files[p] = content
	return nil
}

func (h *Host) ListFiles(ctx context.Context, p string, recursive, filesOnly bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, kerrors.TransportError(h.name, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	names, ok := h.dirs[path.Clean(p)]
	if !ok {
		return nil, kerrors.TransportError(h.name, &fs.PathError{Op: "list", Path: p, Err: fs.ErrNotExist})
	}
	return append([]string(nil), names...), nil
}
