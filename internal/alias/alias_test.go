package alias

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBuiltins(t *testing.T) {
	n, err := New("", nil)
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"DNV", "DNV"},
		{"DNV GL", "DNV"},
		{"dnv-gl", "DNV"},
		{"Det Norske Veritas", "DNV"},
		{"  Bureau   Veritas  ", "Bureau Veritas"}, // inner whitespace collapsed
		{"Lloyds Register", "Lloyd's Register"},
		{"NIPPON KAIJI KYOKAI", "ClassNK"},
		{"ABS.", "ABS"}, // trailing period stripped
		{"Unknown Maritime Authority", "Unknown Maritime Authority"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeTOMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[aliases]
"dnv as" = "DNV"
"dnv gl" = "DNV Maritime"
`), 0o644))

	n, err := New(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "DNV", n.Normalize("DNV AS"))          // new entry
	assert.Equal(t, "DNV Maritime", n.Normalize("DNV GL")) // file overrides builtin
	assert.Equal(t, "ABS", n.Normalize("abs"))             // builtins still present
}

func TestNewMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.toml"), nil)
	assert.Error(t, err)
}

func TestNewBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`not [ valid toml`), 0o644))

	_, err := New(path, nil)
	assert.Error(t, err)
}
