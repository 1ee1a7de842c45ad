package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string   `yaml:"name" toml:"name" json:"name"`
	Timeout Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	Tags    []string `yaml:"tags" toml:"tags" json:"tags"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_AllFormats(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "vault")
	files := map[string]string{
		"c.yaml": "name: ${SAMPLE_NAME}\ntimeout: 20s\ntags: [a, b]\n",
		"c.toml": "name = \"${SAMPLE_NAME}\"\ntimeout = \"20s\"\ntags = [\"a\", \"b\"]\n",
		"c.json": `{"name": "${SAMPLE_NAME}", "timeout": "20s", "tags": ["a", "b"]}`,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			var s sample
			require.NoError(t, Load(writeFile(t, name, content), &s))
			assert.Equal(t, "vault", s.Name)
			assert.Equal(t, 20*time.Second, s.Timeout.Std())
			assert.Equal(t, []string{"a", "b"}, s.Tags)
		})
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	var s sample
	err := Load(writeFile(t, "c.yaml", "timeout: 1s\n"), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoad_BadDuration(t *testing.T) {
	var s sample
	assert.Error(t, Load(writeFile(t, "c.yaml", "name: x\ntimeout: soon\n"), &s))
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeFile(t, "default.yaml", "name: fallback\n")
	var s sample
	require.NoError(t, LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s))
	assert.Equal(t, "fallback", s.Name)
}

func TestFormatOf(t *testing.T) {
	cases := map[string]Format{
		"config.yaml": FormatYAML,
		"config.yml":  FormatYAML,
		"config.TOML": FormatTOML,
		"config.json": FormatJSON,
		"config":      FormatYAML,
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatOf(in), in)
	}
}
