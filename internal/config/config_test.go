package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, c.ScoreBuckets)
	assert.Equal(t, 5, c.PreviewRows)
	assert.Equal(t, "markdown", c.OutputFormat)
	assert.Equal(t, "127.0.0.1", c.ServerHost)
	assert.Equal(t, 8080, c.ServerPort)
	assert.Equal(t, 32, c.MaxUploadMB)
	assert.InDelta(t, 5.0, c.RateLimitRPS, 1e-9)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "console", c.LogFormat)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.ScoreBuckets = 4
	c.Delimiter = ";"
	c.OutputFormat = "json"
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".rfm", "config.yaml"))
	require.NoError(t, err)

	got, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ScoreBuckets)
	assert.Equal(t, ";", got.Delimiter)
	assert.Equal(t, "json", got.OutputFormat)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(p, []byte("score_buckets: 3\nserver_port: 9000\n"), 0o644))
	t.Setenv("RFM_SERVER_PORT", "9100")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 3, c.ScoreBuckets)
	assert.Equal(t, 9100, c.ServerPort)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, c.ScoreBuckets)
}

func TestLoadMalformedFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(p, []byte("score_buckets: [oops\n"), 0o644))
	_, err := Load(p)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Global){
		"buckets":   func(c *Global) { c.ScoreBuckets = 0 },
		"preview":   func(c *Global) { c.PreviewRows = -1 },
		"format":    func(c *Global) { c.OutputFormat = "xml" },
		"upload":    func(c *Global) { c.MaxUploadMB = 0 },
		"rate":      func(c *Global) { c.RateLimitRPS = -1 },
		"delimiter": func(c *Global) { c.Delimiter = ";;" },
		"colon":     func(c *Global) { c.Delimiter = ":" },
		"decimal":   func(c *Global) { c.DecimalSeparator = "space" },
		"thousands": func(c *Global) { c.ThousandsSeparator = "_" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSingleRune(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ";": ';', `\t`: '\t', "tab": '\t', "space": ' ', ",": ',', "Comma": ',', "dot": '.'} {
		got, err := SingleRune(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := SingleRune("ab")
	assert.Error(t, err)
}

func TestSeparatorAllowLists(t *testing.T) {
	d, err := ParseDelimiter("tab")
	require.NoError(t, err)
	assert.Equal(t, '\t', d)
	d, err = ParseDelimiter("")
	require.NoError(t, err)
	assert.Equal(t, rune(0), d)
	_, err = ParseDelimiter(":")
	assert.Error(t, err)

	dec, err := ParseDecimalSeparator("comma")
	require.NoError(t, err)
	assert.Equal(t, ',', dec)
	_, err = ParseDecimalSeparator(" ")
	assert.Error(t, err)

	thou, err := ParseThousandsSeparator("space")
	require.NoError(t, err)
	assert.Equal(t, ' ', thou)
	_, err = ParseThousandsSeparator(";")
	assert.Error(t, err)
}
