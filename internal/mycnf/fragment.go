package mycnf

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
)

// ServerSection is the option group read by the database server process
const ServerSection = "mysqld"

// serverIDOptions are the accepted spellings of the server identifier option
var serverIDOptions = []string{"server_id", "server-id"}

// FragmentKind tells whether a fragment could be parsed
type FragmentKind int

const (
	// Structured fragments were parsed into option groups
	Structured FragmentKind = iota
	// Raw fragments failed to parse and are copied verbatim
	Raw
)

func (k FragmentKind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Fragment is one option file of a hierarchy.
//
// Text is the content read from the source host. After Parse, a structured
// fragment carries its option groups in File; a raw fragment carries only
// Text and ParseErr.
type Fragment struct {
	Path     string
	Text     string
	Kind     FragmentKind
	File     *ini.File
	ParseErr error
}

var loadOptions = ini.LoadOptions{
	AllowBooleanKeys:           true,
	AllowShadows:               true,
	AllowDuplicateShadowValues: true,
	IgnoreContinuation:         true,
	SpaceBeforeInlineComment:   true,
	PreserveSurroundedQuote:    true,
	KeyValueDelimiters:         "=",
}

// ParseOptionFile parses MySQL option file text into option groups.
//
// Options outside of any [group] are rejected, matching how the server
// itself refuses them; such files (for example a root file holding only
// !includedir lines) are copied raw.
func ParseOptionFile(text string) (*ini.File, error) {
	file, err := ini.LoadSources(loadOptions, []byte(text))
	if err != nil {
		return nil, err
	}

	if keys := file.Section(ini.DefaultSection).KeyStrings(); len(keys) > 0 {
		return nil, fmt.Errorf("option %q found outside of any group", keys[0])
	}

	return file, nil
}

// Parse classifies the fragment. A parse failure is not returned; it
// turns the fragment into a Raw one carrying a ConfigParse error. So does
// a file whose rewrite would not read back the same to the server.
func (f *Fragment) Parse() {
	file, err := ParseOptionFile(f.Text)
	if err == nil {
		err = checkRewrite(f.Text, file)
	}
	if err != nil {
		f.Kind = Raw
		f.File = nil
		f.ParseErr = kerrors.ConfigParseError(f.Path, err)
		return
	}
	f.Kind = Structured
	f.File = file
	f.ParseErr = nil
}

// checkRewrite renders file and fails unless every group reads back with
// the same options, in the same order, as in text
func checkRewrite(text string, file *ini.File) error {
	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return err
	}

	before := serverOptions(text)
	after := serverOptions(buf.String())

	groups := make(map[string]bool)
	for group := range before {
		groups[group] = true
	}
	for group := range after {
		groups[group] = true
	}
	for _, group := range slices.Sorted(maps.Keys(groups)) {
		if !slices.Equal(before[group], after[group]) {
			return fmt.Errorf("options of [%s] would change when rewritten", group)
		}
	}
	return nil
}

// serverOptions returns the option lines of text per group, in file order,
// as the server reads them: '#' starts a comment outside of quotes, lines
// starting with ';' are comments, and values are compared as written.
// Directive lines are kept under the group they appear in.
func serverOptions(text string) map[string][]string {
	options := make(map[string][]string)
	group := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(stripComment(line))
		if line == "" || line[0] == ';' {
			continue
		}
		if line[0] == '[' && line[len(line)-1] == ']' {
			group = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}
		if line[0] != '!' {
			if name, value, ok := strings.Cut(line, "="); ok {
				line = strings.TrimSpace(name) + "=" + strings.TrimSpace(value)
			}
		}
		options[group] = append(options[group], line)
	}
	return options
}

// stripComment cuts line at the first '#' outside of single or double quotes
func stripComment(line string) string {
	var quote byte
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case c == '\'' || c == '"':
			if quote == 0 {
				quote = c
			} else if quote == c {
				quote = 0
			}
		case c == '#' && quote == 0:
			return line[:i]
		}
	}
	return line
}

// serverSection returns the server option group, if the fragment has one
func (f *Fragment) serverSection() *ini.Section {
	if f.Kind != Structured || f.File == nil {
		return nil
	}
	section, err := f.File.GetSection(ServerSection)
	if err != nil {
		return nil
	}
	return section
}

// HasServerSection reports whether the fragment declares a [mysqld] group
func (f *Fragment) HasServerSection() bool {
	return f.serverSection() != nil
}

// isServerIDOption matches option names the way the server does: case
// does not matter and '-' equals '_'
func isServerIDOption(name string) bool {
	return strings.EqualFold(strings.ReplaceAll(name, "-", "_"), serverIDOptions[0])
}

// ServerIDOption returns the spelling of the server identifier option used
// in the [mysqld] group, or "" when the group lacks it. When the group sets
// it more than once, the last spelling wins.
func (f *Fragment) ServerIDOption() string {
	section := f.serverSection()
	if section == nil {
		return ""
	}
	option := ""
	for _, key := range section.Keys() {
		if isServerIDOption(key.Name()) {
			option = key.Name()
		}
	}
	return option
}

// SetServerID sets option in the [mysqld] group to id, replacing every
// value the option had
func (f *Fragment) SetServerID(option string, id uint32) error {
	section := f.serverSection()
	if section == nil {
		return fmt.Errorf("%s has no [%s] group", f.Path, ServerSection)
	}

	value := strconv.FormatUint(uint64(id), 10)

	comment := ""
	if section.HasKey(option) {
		key := section.Key(option)
		if len(key.ValueWithShadows()) == 1 {
			key.SetValue(value)
			return nil
		}
		// a repeated option is collapsed into one line
		comment = key.Comment
		section.DeleteKey(option)
	}
	key, err := section.NewKey(option, value)
	if err != nil {
		return fmt.Errorf("failed to set %s in %s: %w", option, f.Path, err)
	}
	key.Comment = comment
	return nil
}

// Render returns the content to write to the destination
func (f *Fragment) Render() (string, error) {
	if f.Kind == Raw || f.File == nil {
		return f.Text, nil
	}
	var buf bytes.Buffer
	if _, err := f.File.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f.Path, err)
	}
	return buf.String(), nil
}
