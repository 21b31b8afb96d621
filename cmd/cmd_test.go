package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/refer/crosswalk"
	"github.com/lehigh-university-libraries/refer/item"
)

const (
	risPub1 = `TY  - JOUR
AU  - John Smith
AU  - Doe, Jane
TI  - Deep Learning in 100% of Libraries
PY  - 2020
AB  - First line second line
ID  - pub-1
ER  -
`
	risPub2 = `TY  - JOUR
AU  - John Smith
TI  - Metadata at Scale
PY  - 2022
ID  - pub-2
ER  -
`
	risPerson = `TY  - JOUR
TI  - Smith, John
ID  - person-1
ER  -
`
)

// useConfig points the commands at the testdata configuration and resets
// the flag globals afterwards.
func useConfig(t *testing.T, path string) {
	t.Helper()
	cfgFile = path
	t.Setenv("REFER_CONFIG_FILE", "")
	t.Cleanup(func() {
		cfgFile = ""
		disseminateOutput = ""
		disseminateAll = false
		validateVerbose = false
		storeFlags.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)
	c.SetContext(context.Background())
	return c, &out
}

func TestDisseminate(t *testing.T) {
	tests := []struct {
		name string
		args []string
		all  bool
		want string
	}{
		{
			name: "single record",
			args: []string{"ris", "pub-1"},
			want: risPub1,
		},
		{
			name: "several records",
			args: []string{"bibtex", "pub-2", "pub-1"},
			want: `@article{pub-2,
  author = {Smith, John},
  title = {Metadata at Scale},
  year = {2022}
}
@article{pub-1,
  author = {Smith, John},
  author = {Doe, Jane},
  title = {Deep Learning in 100\% of Libraries},
  year = {2020}
}
`,
		},
		{
			name: "all records",
			args: []string{"ris"},
			all:  true,
			want: risPub1 + risPub2 + risPerson,
		},
		{
			name: "related records",
			args: []string{"cv", "person-1"},
			want: `John Smith
Publications:
  - Metadata at Scale
  - Deep <i>Learning</i> in 100% of Libraries
`,
		},
		{
			name: "crosswalk name is case insensitive",
			args: []string{"RIS", "pub-2"},
			want: risPub2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, "testdata/refer.yaml")
			disseminateAll = tt.all

			c, out := newTestCommand()
			require.NoError(t, runDisseminate(c, tt.args))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestDisseminateOutputFile(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")
	disseminateOutput = filepath.Join(t.TempDir(), "export.ris")

	c, out := newTestCommand()
	require.NoError(t, runDisseminate(c, []string{"ris", "pub-2"}))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(disseminateOutput)
	require.NoError(t, err)
	assert.Equal(t, risPub2, string(data))
}

func TestDisseminateErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		all     bool
		target  error
		message string
	}{
		{name: "unknown crosswalk", args: []string{"nope", "pub-1"}, message: "unknown crosswalk: nope"},
		{name: "unknown record", args: []string{"ris", "missing"}, target: item.ErrNotFound},
		{name: "unknown record among several", args: []string{"ris", "pub-1", "missing"}, target: item.ErrNotFound},
		{name: "collection", args: []string{"ris", "col-1"}, target: crosswalk.ErrObjectNotSupported},
		{name: "no multiple items template", args: []string{"cv", "pub-1", "pub-2"}, target: crosswalk.ErrMultipleItemsUnsupported},
		{name: "no ids", args: []string{"ris"}, message: "no record ids given"},
		{name: "ids with all", args: []string{"ris", "pub-1"}, all: true, message: "cannot be combined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useConfig(t, "testdata/refer.yaml")
			disseminateAll = tt.all

			c, _ := newTestCommand()
			err := runDisseminate(c, tt.args)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")
	validateVerbose = true

	c, out := newTestCommand()
	require.NoError(t, runValidate(c, nil))

	got := out.String()
	assert.Contains(t, got, "✓ ris\n")
	assert.Contains(t, got, "✓ bibtex\n")
	assert.Contains(t, got, "✓ cv\n")
	assert.Contains(t, got, "Converters: strip-html, bibtex")
	assert.Contains(t, got, "3 crosswalk(s), 0 invalid")
}

func TestValidateFailures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("good.template", "@dc.title@")
	write("virtual.template", "ok\n@virtual.nope@")
	write("groups.template", "@group.dc.subject.start@\n@dc.subject@")
	write("refer.yaml", `crosswalks:
  - name: good
    template: good.template
  - name: virtual
    template: virtual.template
  - name: groups
    template: groups.template
  - name: missing
    template: missing.template
`)
	useConfig(t, filepath.Join(dir, "refer.yaml"))

	c, out := newTestCommand()
	err := runValidate(c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 crosswalk(s) failed validation")

	got := out.String()
	assert.Contains(t, got, "✓ good\n")
	assert.Contains(t, got, "✗ virtual:")
	assert.Contains(t, got, "✗ groups:")
	assert.Contains(t, got, "✗ missing:")
}

func TestValidateInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crosswalks:\n  - name: x\n    template: x.template\n    converters: [rot13]\n"), 0o644))
	useConfig(t, path)

	c, _ := newTestCommand()
	err := runValidate(c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown converter: rot13")
}

func TestCrosswalksList(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")

	c, out := newTestCommand()
	require.NoError(t, runCrosswalksList(c, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Available crosswalks:", lines[0])
	assert.Equal(t, []string{"ris", "application/x-research-info-systems", "yes"}, strings.Fields(lines[4]))
	assert.Equal(t, []string{"bibtex", "application/x-bibtex", "yes"}, strings.Fields(lines[5]))
	assert.Equal(t, []string{"cv", "text/plain;", "charset=utf-8", "no"}, strings.Fields(lines[6]))
}

func TestCrosswalksShow(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")

	c, out := newTestCommand()
	require.NoError(t, runCrosswalksShow(c, []string{"cv"}))

	got := out.String()
	assert.Contains(t, got, "# Crosswalk: cv")
	assert.Contains(t, got, "name: cv\n")
	assert.Contains(t, got, "# Template")
	assert.NotContains(t, got, "# Multiple items template")

	var kinds []string
	for _, line := range strings.Split(got[strings.Index(got, "# Template"):], "\n")[1:] {
		if fields := strings.Fields(line); len(fields) >= 2 {
			kinds = append(kinds, fields[1])
		}
	}
	assert.Equal(t, []string{"virtual", "literal", "relation-start", "metadata", "relation-end"}, kinds)

	err := runCrosswalksShow(c, []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crosswalk not found: nope")
}

func TestCrosswalksFunctions(t *testing.T) {
	c, out := newTestCommand()
	require.NoError(t, runCrosswalksFunctions(c, nil))

	got := out.String()
	assert.Contains(t, got, "Virtual fields:\n")
	assert.Contains(t, got, "  name\n")
	assert.Contains(t, got, "  strip-html\n")
	assert.Contains(t, got, "  bibtex-trailing-comma\n")
}

func TestImportRequiresPostgres(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")

	c, _ := newTestCommand()
	err := runImport(c, []string{"testdata/records.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PostgreSQL store configured")

	err = runImport(c, []string{"testdata/missing.yaml"})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreFlags(t *testing.T) {
	useConfig(t, "testdata/refer.yaml")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DSN)

	require.NoError(t, storeFlags.Parse([]string{"--store", "postgres"}))
	_, err = loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required for the postgres driver")

	require.NoError(t, storeFlags.Parse([]string{"--dsn", "postgres://refer@localhost/refer"}))
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://refer@localhost/refer", cfg.Store.DSN)

	for _, c := range []*cobra.Command{disseminateCmd, serveCmd, importCmd} {
		assert.NotNil(t, c.Flags().Lookup("dsn"), "%s has no --dsn flag", c.Name())
	}
}
