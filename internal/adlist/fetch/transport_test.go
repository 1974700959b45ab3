package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestHTTPTransport_FetchBytes_SetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("example.com\n"))
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	b, err := tr.FetchBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchBytes: %v", err)
	}
	if string(b) != "example.com\n" {
		t.Errorf("body = %q", b)
	}
	if gotUA != userAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, userAgent)
	}
}

func TestHTTPTransport_FetchBytes_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tr := NewHTTPTransport()
	if _, err := tr.FetchBytes(context.Background(), srv.URL); err == nil {
		t.Errorf("expected error for 404 status")
	}
}

func TestHTTPTransport_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte("example.com\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tr := NewHTTPTransport()
	b, err := tr.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "example.com\n" {
		t.Errorf("body = %q", b)
	}
}

func TestHTTPTransport_ReadFile_Missing(t *testing.T) {
	tr := NewHTTPTransport()
	if _, err := tr.ReadFile(context.Background(), "/nonexistent/path/list.txt"); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestLocalTransport_FetchBytes_Unsupported(t *testing.T) {
	tr := LocalTransport{}
	if _, err := tr.FetchBytes(context.Background(), "https://example.com"); err == nil {
		t.Errorf("expected error for remote fetch via LocalTransport")
	}
}

func TestLocalTransport_ReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte("example.com\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tr := LocalTransport{}
	b, err := tr.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(b) != "example.com\n" {
		t.Errorf("body = %q", b)
	}
}
