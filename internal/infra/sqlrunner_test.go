package infra

import (
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 5f533695-a524-4b3e-8d64-3ada3bb0965b
select 1;
`
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extract marker: %v", err)
	}
	if marker != "5f533695-a524-4b3e-8d64-3ada3bb0965b" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(trimmed) != "select 1;" {
		t.Fatalf("trimmed = %q", trimmed)
	}
}

func TestExtractMarkerRejectsMissingOrMalformed(t *testing.T) {
	for name, query := range map[string]string{
		"no marker":     "select 1;",
		"bad uuid":      "--sql not-a-uuid\nselect 1;",
		"uppercase hex": "--sql 5F533695-A524-4B3E-8D64-3ADA3BB0965B\nselect 1;",
		"empty":         "   ",
	} {
		if _, _, err := extractMarker(query); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
