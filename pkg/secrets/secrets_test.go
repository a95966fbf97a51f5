package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredential(t *testing.T) {
	t.Run("meets minimum length", func(t *testing.T) {
		cred, err := NewCredential(CredentialLength)
		require.NoError(t, err)
		assert.Len(t, cred, CredentialLength)
	})

	t.Run("short requests are raised to the minimum", func(t *testing.T) {
		cred, err := NewCredential(4)
		require.NoError(t, err)
		assert.Len(t, cred, CredentialLength)
	})

	t.Run("only draws from the allowed alphabet", func(t *testing.T) {
		cred, err := NewCredential(200)
		require.NoError(t, err)
		for _, c := range cred {
			assert.True(t, strings.ContainsRune(credentialAlphabet, c),
				"unexpected character %q", c)
		}
	})

	t.Run("successive credentials differ", func(t *testing.T) {
		a, err := NewCredential(CredentialLength)
		require.NoError(t, err)
		b, err := NewCredential(CredentialLength)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestSourceLookup(t *testing.T) {
	t.Run("file wins over env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bind_pass")
		require.NoError(t, os.WriteFile(path, []byte("  from-file\n"), 0o600))
		t.Setenv("REGDESK_TEST_SECRET", "from-env")

		v, err := Source{Path: path, EnvKey: "REGDESK_TEST_SECRET"}.Lookup()
		require.NoError(t, err)
		assert.Equal(t, "from-file", v)
	})

	t.Run("falls back to env when file missing", func(t *testing.T) {
		t.Setenv("REGDESK_TEST_SECRET", "from-env")

		v, err := Source{Path: "/nonexistent/secret", EnvKey: "REGDESK_TEST_SECRET"}.Lookup()
		require.NoError(t, err)
		assert.Equal(t, "from-env", v)
	})

	t.Run("errors when nothing is configured", func(t *testing.T) {
		_, err := Source{}.Lookup()
		assert.Error(t, err)
	})
}
