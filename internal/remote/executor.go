// Package remote defines how kaksonen talks to database hosts.
//
// Every workflow step runs shell commands and moves file content through an
// Executor. The production implementation is SSH based (see ssh.go); tests
// use the in-memory host in package remotetest.
package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
)

// Result holds the captured output of a remote command
type Result struct {
	Stdout string
	Stderr string
}

// Executor runs commands and moves content on one remote host.
//
// Implementations own timeouts and cancellation: a blocked call must return
// once ctx is done.
type Executor interface {
	// Host returns the address commands are executed on
	Host() string
	// Port returns the transport port of the host
	Port() int
	// Execute runs cmd through the remote shell. A non-zero exit status is
	// reported as an *ExitError.
	Execute(ctx context.Context, cmd string) (Result, error)
	// TextContent returns the content of path. A missing path yields an
	// error matching fs.ErrNotExist.
	TextContent(ctx context.Context, path string) (string, error)
	// WriteContent replaces path with content
	WriteContent(ctx context.Context, path, content string) error
	// ListFiles returns entry names under path, relative to it
	ListFiles(ctx context.Context, path string, recursive, filesOnly bool) ([]string, error)
}

// ExitError reports a remote command that finished with a non-zero status
type ExitError struct {
	Command string
	Status  int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command exited with status %d", e.Status)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Quote escapes s for use as a single POSIX shell word
func Quote(s string) string {
	return shellescape.Quote(s)
}

// ListFilesCommand builds the find invocation behind ListFiles
func ListFilesCommand(path string, recursive, filesOnly bool) string {
	var sb strings.Builder
	sb.WriteString("find ")
	sb.WriteString(Quote(path))
	sb.WriteString(" -mindepth 1")
	if !recursive {
		sb.WriteString(" -maxdepth 1")
	}
	if filesOnly {
		sb.WriteString(" -type f")
	}
	sb.WriteString(" -printf '%P\\n'")
	return sb.String()
}

// SplitLines returns the non-empty lines of s
func SplitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
