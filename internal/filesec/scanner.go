package filesec

import (
	"bytes"
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ScanResult is the outcome of a content scan. Threat carries a
// human-readable label naming the first matching signature.
type ScanResult struct {
	Clean  bool
	Threat string
}

// Signature is one independent byte-pattern predicate. Match receives the
// declared content type alongside the payload so signatures can stay
// silent where the pattern is legal for that type.
type Signature struct {
	Name  string
	Match func(declaredType string, data []byte) bool
}

// Scanner runs an ordered chain of signatures over a payload. The chain
// is a heuristic gate, not an anti-malware engine; new signatures are
// additive and unit-testable in isolation.
type Scanner struct {
	signatures []Signature
}

// NewScanner builds a Scanner from the given chain. Order matters: the
// first match decides the threat label.
func NewScanner(signatures ...Signature) *Scanner {
	return &Scanner{signatures: signatures}
}

// Scan inspects data against every signature in order. The context is
// checked between signatures so a disconnected client stops the scan.
func (s *Scanner) Scan(ctx context.Context, declaredType string, data []byte) (ScanResult, error) {
	for _, sig := range s.signatures {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}
		if sig.Match(declaredType, data) {
			return ScanResult{Threat: sig.Name}, nil
		}
	}
	return ScanResult{Clean: true}, nil
}

func hasPrefix(data []byte, prefix ...byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func containsFold(data []byte, marker string) bool {
	return bytes.Contains(bytes.ToLower(data), []byte(marker))
}

func isImage(declaredType string) bool {
	return strings.HasPrefix(declaredType, "image/")
}

// DefaultSignatures returns the standard chain. Executable headers come
// first so their labels win over the generic mismatch check.
func DefaultSignatures() []Signature {
	return []Signature{
		{
			Name: "windows executable header",
			Match: func(_ string, data []byte) bool {
				return hasPrefix(data, 'M', 'Z')
			},
		},
		{
			Name: "elf executable header",
			Match: func(_ string, data []byte) bool {
				return hasPrefix(data, 0x7f, 'E', 'L', 'F')
			},
		},
		{
			Name: "mach-o executable header",
			Match: func(_ string, data []byte) bool {
				return hasPrefix(data, 0xfe, 0xed, 0xfa, 0xce) ||
					hasPrefix(data, 0xfe, 0xed, 0xfa, 0xcf) ||
					hasPrefix(data, 0xca, 0xfe, 0xba, 0xbe)
			},
		},
		{
			Name: "embedded script tag",
			Match: func(declared string, data []byte) bool {
				// Script tags are never legal inside the accepted types.
				return containsFold(data, "<script")
			},
		},
		{
			Name: "javascript uri",
			Match: func(_ string, data []byte) bool {
				return containsFold(data, "javascript:")
			},
		},
		{
			Name: "embedded php code",
			Match: func(_ string, data []byte) bool {
				return containsFold(data, "<?php")
			},
		},
		{
			Name: "vba macro marker",
			Match: func(_ string, data []byte) bool {
				return bytes.Contains(data, []byte("AutoOpen")) ||
					bytes.Contains(data, []byte("Document_Open")) ||
					bytes.Contains(data, []byte("Workbook_Open"))
			},
		},
		{
			Name: "pdf polyglot inside image",
			Match: func(declared string, data []byte) bool {
				return isImage(declared) && bytes.Contains(data, []byte("%PDF-"))
			},
		},
		{
			Name: "content does not match declared type",
			Match: func(declared string, data []byte) bool {
				return !mimetype.Detect(data).Is(declared)
			},
		},
	}
}
