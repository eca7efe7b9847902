package httpclient

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/torosent/burl/internal/config"
)

func TestNewBodySource(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		if _, err := NewBodySource(nil); err == nil {
			t.Error("NewBodySource(nil) error = nil, want error")
		}
	})

	t.Run("both body and body file", func(t *testing.T) {
		cfg := &config.Config{Body: "inline", BodyFile: "file.txt"}
		if _, err := NewBodySource(cfg); err == nil {
			t.Error("NewBodySource(both) error = nil, want error")
		}
	})

	t.Run("inline body", func(t *testing.T) {
		source, err := NewBodySource(&config.Config{Body: "hello world"})
		if err != nil {
			t.Fatalf("NewBodySource(inline) error = %v", err)
		}
		assertBody(t, source, "hello world")
	})

	t.Run("file body is read once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "body.json")
		if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		source, err := NewBodySource(&config.Config{BodyFile: path})
		if err != nil {
			t.Fatalf("NewBodySource(file) error = %v", err)
		}
		if err := os.Remove(path); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		assertBody(t, source, `{"a":1}`)
		assertBody(t, source, `{"a":1}`)
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := NewBodySource(&config.Config{BodyFile: "/nonexistent/file"}); err == nil {
			t.Error("NewBodySource(missing file) error = nil, want error")
		}
	})

	t.Run("directory as file", func(t *testing.T) {
		if _, err := NewBodySource(&config.Config{BodyFile: t.TempDir()}); err == nil {
			t.Error("NewBodySource(directory) error = nil, want error")
		}
	})

	t.Run("empty source", func(t *testing.T) {
		source, err := NewBodySource(&config.Config{})
		if err != nil {
			t.Fatalf("NewBodySource(empty) error = %v", err)
		}
		assertBody(t, source, "")
	})
}

func assertBody(t *testing.T, source BodySource, want string) {
	t.Helper()
	if length, ok := source.ContentLength(); !ok || length != int64(len(want)) {
		t.Errorf("ContentLength() = %d, %v; want %d, true", length, ok, len(want))
	}
	rc, err := source.NewReader()
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}
