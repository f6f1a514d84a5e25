package mycnf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/yairfalse/kaksonen/internal/errors"
)

func TestFragmentParse(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		kind      FragmentKind
		hasServer bool
		idOption  string
	}{
		{
			name:      "server group with underscore id",
			text:      "[mysqld]\nserver_id = 7\nskip-name-resolve\n",
			kind:      Structured,
			hasServer: true,
			idOption:  "server_id",
		},
		{
			name:      "server group with hyphen id",
			text:      "[client]\nport=3306\n\n[mysqld]\nserver-id=12\n",
			kind:      Structured,
			hasServer: true,
			idOption:  "server-id",
		},
		{
			name:      "server group without id",
			text:      "# tuning\n[mysqld]\ninnodb_buffer_pool_size = 1G\n",
			kind:      Structured,
			hasServer: true,
		},
		{
			name: "client only",
			text: "[mysqldump]\nquick\nmax_allowed_packet = 64M\n",
			kind: Structured,
		},
		{
			name: "empty file",
			text: "",
			kind: Structured,
		},
		{
			name:      "repeated option",
			text:      "[mysqld]\nreplicate-do-db = a\nreplicate-do-db = b\n",
			kind:      Structured,
			hasServer: true,
		},
		{
			name:      "trailing backslash is not a continuation",
			text:      "[mysqld]\nlog-error = /var/log/mysql/err.log\\\ndatadir = /var/lib/mysql\n",
			kind:      Structured,
			hasServer: true,
		},
		{
			name:      "mixed case id",
			text:      "[mysqld]\nServer_ID = 4\n",
			kind:      Structured,
			hasServer: true,
			idOption:  "Server_ID",
		},
		{
			name:      "both id spellings, last wins",
			text:      "[mysqld]\nserver_id = 1\nserver-id = 2\n",
			kind:      Structured,
			hasServer: true,
			idOption:  "server-id",
		},
		{
			name: "semicolon in value",
			text: "[mysqld]\ninit_connect = SET NAMES utf8;SET autocommit=0\n",
			kind: Raw,
		},
		{
			name: "spaced semicolon in value",
			text: "[mysqld]\ninit_connect = SET NAMES utf8 ; SET autocommit=0\n",
			kind: Raw,
		},
		{
			name: "backtick quoted value",
			text: "[mysqld]\ninit_connect = `SET NAMES utf8`\n",
			kind: Raw,
		},
		{
			name: "repeated flag",
			text: "[mysqld]\nskip-name-resolve\nskip-name-resolve\n",
			kind: Raw,
		},
		{
			name: "unclosed group",
			text: "[mysqld\nserver_id = 3\n",
			kind: Raw,
		},
		{
			name: "directives outside any group",
			text: "!includedir /etc/mysql/conf.d/\n!includedir /etc/mysql/mysql.conf.d/\n",
			kind: Raw,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fragment{Path: "/etc/my.cnf", Text: tt.text}
			f.Parse()

			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.hasServer, f.HasServerSection())
			assert.Equal(t, tt.idOption, f.ServerIDOption())

			if tt.kind == Raw {
				require.Error(t, f.ParseErr)
				assert.True(t, kerrors.IsType(f.ParseErr, kerrors.ErrorTypeConfigParse))
				assert.Nil(t, f.File)
			} else {
				assert.NoError(t, f.ParseErr)
			}
		})
	}
}

func TestFragmentRenderRawIsVerbatim(t *testing.T) {
	text := "[mysqld\n  weird   spacing\n"
	f := &Fragment{Path: "/etc/mysql/broken.cnf", Text: text}
	f.Parse()

	content, err := f.Render()
	require.NoError(t, err)
	assert.Equal(t, text, content)
}

func TestFragmentSetServerID(t *testing.T) {
	f := &Fragment{Path: "/etc/my.cnf", Text: "[mysqld]\nserver-id = 1\ndatadir = /var/lib/mysql\nskip-name-resolve\n"}
	f.Parse()
	require.Equal(t, Structured, f.Kind)

	require.NoError(t, f.SetServerID("server-id", 167772162))

	content, err := f.Render()
	require.NoError(t, err)

	reparsed, err := ParseOptionFile(content)
	require.NoError(t, err)
	section := reparsed.Section(ServerSection)
	assert.Equal(t, "167772162", section.Key("server-id").String())
	assert.Equal(t, "/var/lib/mysql", section.Key("datadir").String())
	assert.True(t, section.HasKey("skip-name-resolve"))
	assert.False(t, section.HasKey("server_id"))
}

func TestFragmentSetServerIDCollapsesRepeats(t *testing.T) {
	f := &Fragment{Path: "/etc/my.cnf", Text: "[mysqld]\nserver_id = 1\ndatadir = /data\nserver_id = 2\n"}
	f.Parse()
	require.Equal(t, Structured, f.Kind)

	require.NoError(t, f.SetServerID(f.ServerIDOption(), 9))

	content, err := f.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"datadir=/data", "server_id=9"}, serverOptions(content)[ServerSection])
}

func TestFragmentSetServerIDKeepsPosition(t *testing.T) {
	f := &Fragment{Path: "/etc/my.cnf", Text: "[mysqld]\nServer-Id = 1\n!include more.cnf\n"}
	f.Parse()
	require.Equal(t, "Server-Id", f.ServerIDOption())

	require.NoError(t, f.SetServerID(f.ServerIDOption(), 9))

	content, err := f.Render()
	require.NoError(t, err)
	assert.Equal(t, []string{"Server-Id=9", "!include more.cnf"}, serverOptions(content)[ServerSection])
}

func TestFragmentRenderKeepsOptions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "packaged server file",
			text: `# Percona Server template
[client]
port            = 3306
socket          = /var/run/mysqld/mysqld.sock

[mysqld]
user            = mysql
datadir         = /var/lib/mysql   # data volume
log-error       = "/var/log/mysql/error.log"
replicate-do-db = app
replicate-do-db = audit
replicate-do-db = app
skip-name-resolve
sql_mode        = 'STRICT_TRANS_TABLES,NO_ENGINE_SUBSTITUTION'
!include /etc/mysql/tuning.cnf

[mysqldump]
quick
max_allowed_packet = 64M
!includedir /etc/mysql/conf.d/
`,
		},
		{
			name: "windows line endings and a trailing backslash",
			text: "[mysqld]\r\nlog-error = C:\\mysql\\logs\\\r\ntmpdir = C:\\tmp\r\n",
		},
		{
			name: "group repeated later in the file",
			text: "[mysqld]\nport = 3306\n\n[client]\nport = 3306\n\n[mysqld]\nbind-address = 0.0.0.0\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fragment{Path: "/etc/mysql/my.cnf", Text: tt.text}
			f.Parse()
			require.Equal(t, Structured, f.Kind, "parse error: %v", f.ParseErr)

			content, err := f.Render()
			require.NoError(t, err)
			assert.Equal(t, serverOptions(tt.text), serverOptions(content))

			// The rendered file parses to the same options, repeats included
			reparsed, err := ParseOptionFile(content)
			require.NoError(t, err)
			for _, section := range f.File.Sections() {
				other, err := reparsed.GetSection(section.Name())
				require.NoError(t, err, section.Name())
				require.Equal(t, section.KeyStrings(), other.KeyStrings(), section.Name())
				for _, key := range section.Keys() {
					assert.Equal(t, key.ValueWithShadows(), other.Key(key.Name()).ValueWithShadows(), key.Name())
				}
			}
		})
	}
}

func TestServerOptions(t *testing.T) {
	text := `; header
[mysqld]
datadir   =   /data   # volume
password  = "se#cret" # quoted hash
init_connect = SET a=1;SET b=2
!include extra.cnf
skip-name-resolve

[client]
port=3306
`
	assert.Equal(t, map[string][]string{
		"mysqld": {
			"datadir=/data",
			`password="se#cret"`,
			"init_connect=SET a=1;SET b=2",
			"!include extra.cnf",
			"skip-name-resolve",
		},
		"client": {"port=3306"},
	}, serverOptions(text))
}

func TestFragmentSetServerIDWithoutGroup(t *testing.T) {
	f := &Fragment{Path: "/etc/mysql/conf.d/client.cnf", Text: "[client]\nuser = backup\n"}
	f.Parse()

	assert.Error(t, f.SetServerID("server_id", 1))
}

func TestFragmentKindString(t *testing.T) {
	assert.Equal(t, "structured", Structured.String())
	assert.Equal(t, "raw", Raw.String())
}
