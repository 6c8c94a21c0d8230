package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExampleMatchesDefaults(t *testing.T) {
	p, err := ReadString(Example)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestReadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cfg")
	text := "[Phase]\nGlobalScale = 4.5\n\n[Output]\nDir = out\nDebug = true\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	p, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4.5, p.Phase.GlobalScale)
	assert.Equal(t, "out", p.Output.Dir)
	assert.True(t, p.Output.Debug)
	assert.Equal(t, 1e-3, p.Scale.Regularizer)
	assert.Equal(t, 6, p.Phase.OuterIterations)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		wantOK bool
	}{
		{"defaults", "", true},
		{"regularizer too small", "[Scale]\nRegularizer = 1e-7\n", false},
		{"regularizer too large", "[Scale]\nRegularizer = 0.5\n", false},
		{"zero sigma", "[Phase]\nGlobalScale = 0\n", false},
		{"no isolines", "[Isolines]\nCount = 0\n", false},
		{"no fields", "[Cover]\nFields = 0\n", false},
		{"no iterations", "[Phase]\nInnerIterations = 0\n", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadString(tc.text)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestReadErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.cfg"))
	assert.Error(t, err)

	_, err = ReadString("[Unknown]\nKey = 1\n")
	assert.Error(t, err)
}
