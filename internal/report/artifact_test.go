package report

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestCompressionForPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Compression
	}{
		{"vocabulary.json", CompressionNone},
		{"out/vocabulary.json.gz", CompressionGzip},
		{"VOCAB.JSON.GZ", CompressionGzip},
		{"vocabulary.json.zst", CompressionZstd},
		{"vocabulary", CompressionNone},
	}
	for _, tt := range tests {
		if got := CompressionForPath(tt.path); got != tt.want {
			t.Errorf("CompressionForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWriteArtifact(t *testing.T) {
	t.Parallel()

	t.Run("plain artifact is an indented JSON array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteArtifact(&buf, []string{"apple", "ant"}, CompressionNone); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "[\n  \"apple\",\n  \"ant\"\n]\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("empty vocabulary is an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteArtifact(&buf, nil, CompressionNone); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("got %q", buf.String())
		}
	})

	for _, c := range []Compression{CompressionNone, CompressionGzip, CompressionZstd} {
		t.Run("round trip with "+c.String(), func(t *testing.T) {
			t.Parallel()

			terms := []string{"apple", "ant", "éclair"}
			var buf bytes.Buffer
			if err := WriteArtifact(&buf, terms, c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, err := ReadArtifact(&buf, c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, terms) {
				t.Errorf("got %v, want %v", got, terms)
			}
		})
	}
}

func TestWriteArtifactFile(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories and compresses by extension", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "vocabulary.json.zst")
		if err := WriteArtifactFile(path, []string{"apple"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		if bytes.Contains(raw, []byte("apple")) {
			t.Error("expected compressed content")
		}

		got, err := ReadArtifactFile(path)
		if err != nil || !slices.Equal(got, []string{"apple"}) {
			t.Errorf("ReadArtifactFile = %v, %v", got, err)
		}
	})

	t.Run("replaces an existing artifact without leftovers", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "vocabulary.json")
		if err := os.WriteFile(path, []byte(`["stale"]`), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := WriteArtifactFile(path, []string{"apple", "band"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, err := ReadArtifactFile(path)
		if err != nil || !slices.Equal(got, []string{"apple", "band"}) {
			t.Errorf("ReadArtifactFile = %v, %v", got, err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || entries[0].Name() != "vocabulary.json" {
			t.Errorf("expected only the artifact in %s, got %v", dir, entries)
		}
	})

	t.Run("failed write removes the temporary file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "vocabulary.json")
		if err := os.Mkdir(path, 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o600); err != nil {
			t.Fatal(err)
		}
		if err := WriteArtifactFile(path, []string{"apple"}); err == nil {
			t.Fatal("expected an error when the path is a directory")
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 || !entries[0].IsDir() {
			t.Errorf("expected only the directory in %s, got %v", dir, entries)
		}
	})

	t.Run("rejects a non-array artifact", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadArtifactFile(path); err == nil {
			t.Error("expected an error")
		}
	})
}
