package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/kaksonen/internal/mycnf"
	"github.com/yairfalse/kaksonen/internal/snapshot"
)

// NewFormatter creates a formatter based on format type
func NewFormatter(config Config) (Formatter, error) {
	switch config.Format {
	case "", FormatTable:
		return NewTableFormatter(config), nil
	case FormatJSON:
		return &JSONFormatter{Pretty: config.Pretty}, nil
	case FormatYAML, "yml":
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

func (f *JSONFormatter) encode(v interface{}, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

func (f *JSONFormatter) FormatClone(clone CloneItem, w io.Writer) error {
	return f.encode(clone, w)
}

func (f *JSONFormatter) FormatReport(report *mycnf.Report, w io.Writer) error {
	return f.encode(report, w)
}

func (f *JSONFormatter) FormatCoordinates(coordinates snapshot.Coordinates, w io.Writer) error {
	return f.encode(coordinates, w)
}

func (f *JSONFormatter) FormatServerID(id ServerIDItem, w io.Writer) error {
	return f.encode(id, w)
}

func (f *JSONFormatter) FormatBootstrap(bootstrap BootstrapItem, w io.Writer) error {
	return f.encode(bootstrap, w)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) encode(v interface{}, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(v)
}

func (f *YAMLFormatter) FormatClone(clone CloneItem, w io.Writer) error {
	return f.encode(clone, w)
}

func (f *YAMLFormatter) FormatReport(report *mycnf.Report, w io.Writer) error {
	return f.encode(report, w)
}

func (f *YAMLFormatter) FormatCoordinates(coordinates snapshot.Coordinates, w io.Writer) error {
	return f.encode(coordinates, w)
}

func (f *YAMLFormatter) FormatServerID(id ServerIDItem, w io.Writer) error {
	return f.encode(id, w)
}

func (f *YAMLFormatter) FormatBootstrap(bootstrap BootstrapItem, w io.Writer) error {
	return f.encode(bootstrap, w)
}
