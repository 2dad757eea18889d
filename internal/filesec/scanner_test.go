package filesec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngPayload is a minimal valid PNG: magic, IHDR, and IEND chunks.
func pngPayload(extra ...byte) []byte {
	data := []byte{
		0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
		0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
		0x00, 0x00, 0x00, 0x00, 'I', 'E', 'N', 'D',
		0xae, 0x42, 0x60, 0x82,
	}
	return append(data, extra...)
}

func pdfPayload(extra ...byte) []byte {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	return append(data, extra...)
}

func TestScannerCleanFiles(t *testing.T) {
	s := NewScanner(DefaultSignatures()...)
	ctx := context.Background()

	t.Run("clean png", func(t *testing.T) {
		res, err := s.Scan(ctx, "image/png", pngPayload())
		require.NoError(t, err)
		assert.True(t, res.Clean)
		assert.Empty(t, res.Threat)
	})

	t.Run("clean pdf", func(t *testing.T) {
		res, err := s.Scan(ctx, "application/pdf", pdfPayload())
		require.NoError(t, err)
		assert.True(t, res.Clean)
	})
}

func TestScannerThreats(t *testing.T) {
	s := NewScanner(DefaultSignatures()...)
	ctx := context.Background()

	tests := []struct {
		name     string
		declared string
		data     []byte
		threat   string
	}{
		{
			name:     "windows executable declared as image",
			declared: "image/png",
			data:     []byte("MZ\x90\x00\x03binary"),
			threat:   "windows executable header",
		},
		{
			name:     "elf binary",
			declared: "image/jpeg",
			data:     []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01},
			threat:   "elf executable header",
		},
		{
			name:     "script tag inside png",
			declared: "image/png",
			data:     pngPayload([]byte("<SCRIPT>alert(1)</script>")...),
			threat:   "embedded script tag",
		},
		{
			name:     "javascript uri inside pdf",
			declared: "application/pdf",
			data:     pdfPayload([]byte("/URI (javascript:evil())")...),
			threat:   "javascript uri",
		},
		{
			name:     "php code inside image",
			declared: "image/jpeg",
			data:     append([]byte{0xff, 0xd8, 0xff, 0xe0}, []byte("<?php system($_GET['c']); ?>")...),
			threat:   "embedded php code",
		},
		{
			name:     "vba macro marker",
			declared: "application/pdf",
			data:     pdfPayload([]byte("Sub AutoOpen()")...),
			threat:   "vba macro marker",
		},
		{
			name:     "pdf polyglot inside image",
			declared: "image/png",
			data:     pngPayload([]byte("%PDF-1.7 trailer")...),
			threat:   "pdf polyglot inside image",
		},
		{
			name:     "declared type disagrees with sniffed content",
			declared: "image/png",
			data:     pdfPayload(),
			threat:   "pdf polyglot inside image",
		},
		{
			name:     "plain text declared as image",
			declared: "image/jpeg",
			data:     []byte("just some harmless text, honest"),
			threat:   "content does not match declared type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Scan(ctx, tt.declared, tt.data)
			require.NoError(t, err)
			assert.False(t, res.Clean)
			assert.Equal(t, tt.threat, res.Threat)
		})
	}
}

func TestScannerChainOrder(t *testing.T) {
	// An MZ-prefixed payload also fails the sniff check; the earlier
	// executable signature must win the label.
	s := NewScanner(DefaultSignatures()...)
	res, err := s.Scan(context.Background(), "image/png", []byte("MZ garbage"))
	require.NoError(t, err)
	assert.Equal(t, "windows executable header", res.Threat)
}

func TestScannerAdditiveSignatures(t *testing.T) {
	// Signatures are pluggable: a custom chain works without touching
	// the orchestrator.
	custom := Signature{
		Name: "forbidden marker",
		Match: func(_ string, data []byte) bool {
			return string(data) == "marker"
		},
	}
	s := NewScanner(custom)

	res, err := s.Scan(context.Background(), "image/png", []byte("marker"))
	require.NoError(t, err)
	assert.Equal(t, "forbidden marker", res.Threat)

	res, err = s.Scan(context.Background(), "image/png", []byte("other"))
	require.NoError(t, err)
	assert.True(t, res.Clean)
}

func TestScannerCancelledContext(t *testing.T) {
	s := NewScanner(DefaultSignatures()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Scan(ctx, "image/png", pngPayload())
	assert.ErrorIs(t, err, context.Canceled)
}
