package snapshot

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yairfalse/kaksonen/internal/remote"
)

// BinlogInfoFile is written by xtrabackup next to the data files and holds
// the binary log coordinates the snapshot is consistent with
const BinlogInfoFile = "xtrabackup_binlog_info"

var fieldSeparator = regexp.MustCompile(`\t+`)

// Coordinates locate a point in the source's binary log
type Coordinates struct {
	File     string `json:"file" yaml:"file"`
	Position uint64 `json:"position" yaml:"position"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%s:%d", c.File, c.Position)
}

// ParseCoordinates reads "<file>\t<position>" as found in BinlogInfoFile.
// Fields are separated by one or more tabs; trailing whitespace and any
// fields after the position are ignored.
func ParseCoordinates(text string) (Coordinates, error) {
	line := strings.TrimRightFunc(text, unicode.IsSpace)
	fields := fieldSeparator.Split(line, -1)
	if len(fields) < 2 || fields[0] == "" {
		return Coordinates{}, fmt.Errorf("malformed binlog info %q: expected <file>\\t<position>", line)
	}

	position, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Coordinates{}, fmt.Errorf("malformed binlog position %q: %w", fields[1], err)
	}

	return Coordinates{File: fields[0], Position: position}, nil
}

// ReadCoordinates reads and parses BinlogInfoFile under dir on exec's host
func ReadCoordinates(ctx context.Context, exec remote.Executor, dir string) (Coordinates, error) {
	result, err := exec.Execute(ctx, "sudo cat "+remote.Quote(path.Join(dir, BinlogInfoFile)))
	if err != nil {
		return Coordinates{}, err
	}
	return ParseCoordinates(result.Stdout)
}
