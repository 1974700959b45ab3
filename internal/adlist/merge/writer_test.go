package merge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nyxdns/adlistgen/internal/adlist/common/clock"
	"github.com/nyxdns/adlistgen/internal/adlist/domain"
)

func mustEntry(t *testing.T, kind domain.EntryKind, host string) domain.Entry {
	t.Helper()
	e, err := domain.NewEntry(kind, host)
	if err != nil {
		t.Fatalf("NewEntry(%v, %q): %v", kind, host, err)
	}
	return e
}

func TestWriter_Write_SortsDedupesAndWritesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	w := NewWriter(nil, 0.01)

	entries := []domain.Entry{
		mustEntry(t, domain.EntryDomain, "Zebra.com"),
		mustEntry(t, domain.EntryDomain, "apple.com"),
		mustEntry(t, domain.EntryDomain, "apple.com"),
		mustEntry(t, domain.EntryABPBlock, "tracker.net"),
	}

	if err := w.Write(path, Header{Title: "blocklist", Sources: 2}, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(b)

	if strings.Contains(content, "\r") {
		t.Errorf("output contains CR bytes")
	}

	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var data []string
	for _, l := range lines {
		if !isHeaderLine(l) {
			data = append(data, l)
		}
	}
	want := []string{"apple.com", "Zebra.com", "||tracker.net^"}
	if len(data) != len(want) {
		t.Fatalf("data lines = %v, want %v", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("data[%d] = %q, want %q", i, data[i], want[i])
		}
	}
	if !strings.Contains(content, "total: 3") {
		t.Errorf("header missing total: 3:\n%s", content)
	}
}

func TestWriter_Write_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	w := NewWriter(nil, 0.01)

	if err := os.WriteFile(path, []byte("stale content"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	entries := []domain.Entry{mustEntry(t, domain.EntryDomain, "fresh.com")}
	if err := w.Write(path, Header{Title: "blocklist", Sources: 1}, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, _ := os.ReadFile(path)
	if strings.Contains(string(b), "stale content") {
		t.Errorf("expected stale content to be replaced")
	}
	if !strings.Contains(string(b), "fresh.com") {
		t.Errorf("expected fresh content, got %s", b)
	}

	entriesInDir, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entriesInDir {
		if strings.HasPrefix(e.Name(), ".adlistgen-tmp-") {
			t.Errorf("leftover temp file: %s", e.Name())
		}
	}
}

func TestWriter_ReadPrior_MissingFileIsEmptyNotError(t *testing.T) {
	w := NewWriter(nil, 0.01)
	entries, err := w.ReadPrior(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("ReadPrior: unexpected error %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty prior, got %v", entries)
	}
}

func TestWriter_ReadPrior_SkipsHeaderReparsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	content := "# adlistgen blocklist\n# generated by https://example.com\n#\n" +
		"a.com\n||tracker.net^\n@@||cdn.safe.com^\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w := NewWriter(nil, 0.01)
	entries, err := w.ReadPrior(path)
	if err != nil {
		t.Fatalf("ReadPrior: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %v, want 3", entries)
	}
	if entries[0].Host != "a.com" || entries[0].Kind != domain.EntryDomain {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Host != "tracker.net" || entries[1].Kind != domain.EntryABPBlock {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	if entries[2].Host != "cdn.safe.com" || entries[2].Kind != domain.EntryABPAllow {
		t.Errorf("entries[2] = %+v", entries[2])
	}
}

func TestWriter_Write_UsesInjectedClockForHeaderTimestamp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	w := NewWriter(nil, 0.01).WithClock(&clock.MockClock{CurrentTime: fixed})

	entries := []domain.Entry{mustEntry(t, domain.EntryDomain, "example.com")}
	if err := w.Write(path, Header{Title: "blocklist", Sources: 1}, entries); err != nil {
		t.Fatalf("Write: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "2026-03-04T05:06:07Z") {
		t.Errorf("expected header to carry the injected clock's timestamp, got:\n%s", b)
	}
}

func TestWriter_TransientFailurePreservesHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.txt")
	w := NewWriter(nil, 0.01)

	run1 := []domain.Entry{
		mustEntry(t, domain.EntryDomain, "a.com"),
		mustEntry(t, domain.EntryDomain, "b.com"),
	}
	if err := w.Write(path, Header{Title: "blocklist", Sources: 1}, run1); err != nil {
		t.Fatalf("Write run1: %v", err)
	}

	prior, err := w.ReadPrior(path)
	if err != nil {
		t.Fatalf("ReadPrior: %v", err)
	}
	// Run 2: source A fails, contributing nothing new; union with prior
	// history must still preserve a.com and b.com.
	merged := append(append([]domain.Entry{}, prior...))
	if err := w.Write(path, Header{Title: "blocklist", Sources: 1}, merged); err != nil {
		t.Fatalf("Write run2: %v", err)
	}

	b, _ := os.ReadFile(path)
	for _, want := range []string{"a.com", "b.com"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected preserved entry %q in:\n%s", want, b)
		}
	}
}
