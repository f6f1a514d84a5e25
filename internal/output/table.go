package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/yairfalse/kaksonen/internal/mycnf"
	"github.com/yairfalse/kaksonen/internal/snapshot"
)

// TableFormatter renders results as aligned key/value tables
type TableFormatter struct {
	config Config
	ok     *color.Color
	bad    *color.Color
	title  *color.Color
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(config Config) *TableFormatter {
	t := &TableFormatter{
		config: config,
		ok:     color.New(color.FgGreen),
		bad:    color.New(color.FgRed),
		title:  color.New(color.Bold),
	}
	if config.NoColor {
		t.ok.DisableColor()
		t.bad.DisableColor()
		t.title.DisableColor()
	}
	return t
}

func (t *TableFormatter) header(w io.Writer, title string) {
	fmt.Fprintln(w, t.title.Sprint(title))
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

func (t *TableFormatter) FormatClone(clone CloneItem, w io.Writer) error {
	t.header(w, "Clone")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Source:\t%s\n", clone.Source)
	fmt.Fprintf(tw, "Destination:\t%s\n", clone.Destination)
	fmt.Fprintf(tw, "Compressed:\t%t\n", clone.Compressed)
	fmt.Fprintf(tw, "Error log:\t%s\n", clone.ErrorLog)
	return tw.Flush()
}

func (t *TableFormatter) FormatReport(report *mycnf.Report, w io.Writer) error {
	t.header(w, "Configuration")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Root:\t%s\n", report.Root)
	fmt.Fprintf(tw, "Server id:\t%d\n", report.ServerID)
	if report.ServerIDPath != "" {
		fmt.Fprintf(tw, "Written to:\t%s (%s)\n", report.ServerIDPath, report.ServerIDOption)
	} else {
		fmt.Fprintf(tw, "Written to:\t%s\n", t.bad.Sprint("no [mysqld] group found"))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "File\tCopied as\n")
	fmt.Fprintf(tw, "----\t---------\n")
	for _, p := range report.Structured {
		fmt.Fprintf(tw, "%s\t%s\n", p, t.ok.Sprint(mycnf.Structured))
	}
	for _, p := range report.Raw {
		fmt.Fprintf(tw, "%s\t%s\n", p, t.bad.Sprint(mycnf.Raw))
	}
	return tw.Flush()
}

func (t *TableFormatter) FormatCoordinates(coordinates snapshot.Coordinates, w io.Writer) error {
	t.header(w, "Binlog coordinates")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", coordinates.File)
	fmt.Fprintf(tw, "Position:\t%d\n", coordinates.Position)
	return tw.Flush()
}

func (t *TableFormatter) FormatServerID(id ServerIDItem, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%d\n", id.Host, id.ServerID)
	return tw.Flush()
}

func (t *TableFormatter) FormatBootstrap(bootstrap BootstrapItem, w io.Writer) error {
	t.header(w, "Replication")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Replica:\t%s\n", bootstrap.Replica)
	fmt.Fprintf(tw, "Master:\t%s\n", bootstrap.Master)
	fmt.Fprintf(tw, "Coordinates:\t%s\n", bootstrap.Coordinates)
	if bootstrap.Started {
		fmt.Fprintf(tw, "Status:\t%s\n", t.ok.Sprint("started"))
	} else {
		fmt.Fprintf(tw, "Status:\t%s\n", t.bad.Sprint("failed"))
		if bootstrap.Error != "" {
			fmt.Fprintf(tw, "Error:\t%s\n", bootstrap.Error)
		}
	}
	return tw.Flush()
}
