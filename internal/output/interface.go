package output

import (
	"io"

	"github.com/yairfalse/kaksonen/internal/mycnf"
	"github.com/yairfalse/kaksonen/internal/snapshot"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Formatter renders command results
type Formatter interface {
	FormatClone(clone CloneItem, w io.Writer) error
	FormatReport(report *mycnf.Report, w io.Writer) error
	FormatCoordinates(coordinates snapshot.Coordinates, w io.Writer) error
	FormatServerID(id ServerIDItem, w io.Writer) error
	FormatBootstrap(bootstrap BootstrapItem, w io.Writer) error
}

// CloneItem describes a finished clone
type CloneItem struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Compressed  bool   `json:"compressed" yaml:"compressed"`
	ErrorLog    string `json:"error_log" yaml:"error_log"`
}

// ServerIDItem pairs a host with its derived server id
type ServerIDItem struct {
	Host     string `json:"host" yaml:"host"`
	ServerID uint32 `json:"server_id" yaml:"server_id"`
}

// BootstrapItem describes a replication bootstrap attempt
type BootstrapItem struct {
	Replica     string               `json:"replica" yaml:"replica"`
	Master      string               `json:"master" yaml:"master"`
	Coordinates snapshot.Coordinates `json:"coordinates" yaml:"coordinates"`
	Started     bool                 `json:"started" yaml:"started"`
	Error       string               `json:"error,omitempty" yaml:"error,omitempty"`
}

// Config holds output configuration
type Config struct {
	Format  OutputFormat
	NoColor bool
	// Pretty indents JSON output
	Pretty bool
}
