package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCatHandler(t *testing.T) {
	t.Run("tab separated record", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&catHandler{w: &buf, opID: "20250310220000-scan"})

		logger.Info("scan complete", "root", "main", "new", 3)

		line := strings.TrimRight(buf.String(), "\n")
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			t.Fatalf("got %d fields, want 6: %q", len(fields), line)
		}
		if fields[1] != "INFO" {
			t.Errorf("level = %q, want INFO", fields[1])
		}
		if fields[2] != "20250310220000-scan" {
			t.Errorf("opID = %q", fields[2])
		}
		if fields[3] != "scan complete" {
			t.Errorf("message = %q", fields[3])
		}
		if fields[4] != "root=main" || fields[5] != "new=3" {
			t.Errorf("attrs = %q %q", fields[4], fields[5])
		}
	})

	t.Run("with attrs prepends bound attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(&catHandler{w: &buf, opID: "op"}).With("root", "main")

		logger.Warn("walk failed", "err", "permission denied")

		line := strings.TrimRight(buf.String(), "\n")
		fields := strings.Split(line, "\t")
		if len(fields) != 6 {
			t.Fatalf("got %d fields, want 6: %q", len(fields), line)
		}
		if fields[4] != "root=main" {
			t.Errorf("bound attr = %q, want root=main", fields[4])
		}
		if fields[5] != "err=permission denied" {
			t.Errorf("record attr = %q", fields[5])
		}
	})
}
