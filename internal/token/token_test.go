package token

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		tok, err := Generate(16)
		require.NoError(t, err)
		assert.Len(t, tok, 32) // hex doubles the byte count
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]+$`), tok)
	})

	t.Run("invalid length", func(t *testing.T) {
		_, err := Generate(0)
		assert.Error(t, err)
		_, err = Generate(-4)
		assert.Error(t, err)
	})

	t.Run("statistical uniqueness", func(t *testing.T) {
		const samples = 10000
		seen := make(map[string]struct{}, samples)
		for i := 0; i < samples; i++ {
			tok, err := Generate(16)
			require.NoError(t, err)
			_, dup := seen[tok]
			require.False(t, dup, "token collision after %d samples", i)
			seen[tok] = struct{}{}
		}
	})
}

func TestSecureFileName(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		wantExt     string
		wantErr     bool
	}{
		{"jpeg", "image/jpeg", ".jpg", false},
		{"png", "image/png", ".png", false},
		{"pdf", "application/pdf", ".pdf", false},
		{"outside allow-list", "application/x-msdownload", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SecureFileName(tt.contentType)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(got, tt.wantExt))
			// token(16 bytes) hex + "." + ext
			assert.Len(t, got, 32+len(tt.wantExt))
		})
	}
}

func TestSecureFileNameIndependentOfInput(t *testing.T) {
	// Two names for the same content type never repeat and share no
	// user-controlled material.
	a, err := SecureFileName("image/png")
	require.NoError(t, err)
	b, err := SecureFileName("image/png")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
