package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestReadLines_SkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.txt")
	content := "vless://a\n\n   \nvless://b\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines, err := readLines(path)
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "vless://a" || lines[1] != "vless://b" {
		t.Errorf("lines = %v", lines)
	}
}

func TestParseAll_DropsUnparseableLinks(t *testing.T) {
	logger := zap.NewNop()
	links := []string{
		"vless://uuid-1@example.com:443?type=tcp&security=none#ok",
		"not-a-valid-link",
		"ftp://unsupported-scheme",
	}

	out := parseAll(links, logger)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d: %+v", len(out), out)
	}
	if out[0].Link != links[0] {
		t.Errorf("survivor = %q, want %q", out[0].Link, links[0])
	}
}
