package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"unicode/utf8"
)

func TestChunkText_Short(t *testing.T) {
	chunks, err := ChunkText("  Just plain text with no headings.\n", 600, 100)
	if err != nil {
		t.Fatalf("ChunkText failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Just plain text with no headings." {
		t.Errorf("Expected trimmed text, got %q", chunks[0])
	}
}

func TestChunkText_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		chunks, err := ChunkText(text, 600, 100)
		if err != nil {
			t.Fatalf("ChunkText(%q) failed: %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("ChunkText(%q): expected no chunks, got %d", text, len(chunks))
		}
	}
}

func TestChunkText_HardCut(t *testing.T) {
	text := strings.Repeat("abcdefghij", 150)

	chunks, err := ChunkText(text, 600, 100)
	if err != nil {
		t.Fatalf("ChunkText failed: %v", err)
	}

	want := []string{text[0:600], text[500:1100], text[1000:1500]}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %d chars starting %q, want %d chars starting %q",
				i, len(chunks[i]), chunks[i][:10], len(want[i]), want[i][:10])
		}
	}
}

func TestChunkText_Boundaries(t *testing.T) {
	x := func(n int) string { return strings.Repeat("x", n) }
	y := func(n int) string { return strings.Repeat("y", n) }

	tests := []struct {
		name  string
		text  string
		first string
	}{
		{
			name:  "paragraph break",
			text:  x(400) + "\n\n" + y(400),
			first: x(400),
		},
		{
			name:  "sentence break",
			text:  x(350) + ". " + y(400),
			first: x(350) + ".",
		},
		{
			name:  "line break",
			text:  x(350) + "\n" + y(400),
			first: x(350),
		},
		{
			name:  "paragraph preferred over later sentence",
			text:  x(320) + "\n\n" + y(100) + ". " + y(400),
			first: x(320),
		},
		{
			name:  "break in first half ignored",
			text:  x(100) + "\n\n" + y(700),
			first: x(100) + "\n\n" + y(498),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ChunkText(tt.text, 600, 100)
			if err != nil {
				t.Fatalf("ChunkText failed: %v", err)
			}
			if len(chunks) == 0 {
				t.Fatal("Expected chunks, got none")
			}
			if chunks[0] != tt.first {
				t.Errorf("first chunk: got %d chars, want %d chars", len(chunks[0]), len(tt.first))
			}
		})
	}
}

func TestChunkText_OverlapAfterParagraph(t *testing.T) {
	text := strings.Repeat("A", 400) + "\n\n" + strings.Repeat("B", 400)

	chunks, err := ChunkText(text, 600, 100)
	if err != nil {
		t.Fatalf("ChunkText failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if want := strings.Repeat("A", 98) + "\n\n" + strings.Repeat("B", 400); chunks[1] != want {
		t.Errorf("second chunk should start 100 characters before the cut, got %q...", chunks[1][:20])
	}
}

func TestChunkText_Properties(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 5000; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strings.Repeat("w", i%17))
		sb.WriteString(". ")
		if i%7 == 0 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	for _, overlap := range []int{0, 50, 100, 299} {
		chunks, err := ChunkText(text, 300, overlap)
		if err != nil {
			t.Fatalf("overlap %d: ChunkText failed: %v", overlap, err)
		}

		pos := 0
		for i, c := range chunks {
			if utf8.RuneCountInString(c) > 300 {
				t.Errorf("overlap %d: chunk %d has %d chars, exceeds 300", overlap, i, len(c))
			}
			idx := strings.Index(text[pos:], c)
			if idx < 0 {
				t.Fatalf("overlap %d: chunk %d is not an in-order substring of the text", overlap, i)
			}
			pos += idx
		}
		if !strings.HasSuffix(strings.TrimSpace(text), chunks[len(chunks)-1]) {
			t.Errorf("overlap %d: last chunk does not reach the end of the text", overlap)
		}
	}
}

func TestChunkText_Runes(t *testing.T) {
	text := strings.Repeat("é", 1000)

	chunks, err := ChunkText(text, 600, 100)
	if err != nil {
		t.Fatalf("ChunkText failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
	if n := utf8.RuneCountInString(chunks[0]); n != 600 {
		t.Errorf("Expected 600 characters in first chunk, got %d", n)
	}
}

func TestChunkText_InvalidParameters(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{0, 0},
		{-5, 0},
		{100, 100},
		{100, 150},
		{100, -1},
	}
	for _, tt := range tests {
		_, err := ChunkText("some text", tt.size, tt.overlap)
		if !errors.Is(err, ErrInvalidChunking) {
			t.Errorf("ChunkText(size=%d, overlap=%d): expected ErrInvalidChunking, got %v", tt.size, tt.overlap, err)
		}
	}
}

func TestLoadDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/z.md":          {Data: []byte("zed")},
		"docs/a.md":          {Data: []byte("alpha")},
		"docs/guide/b.md":    {Data: []byte("beta")},
		"docs/notes.txt":     {Data: []byte("ignored")},
		"docs/.git/HEAD.md":  {Data: []byte("ignored")},
		"docs/vendor/dep.md": {Data: []byte("ignored")},
	}

	docs, err := LoadDocuments(fsys, "docs", DefaultInclude, DefaultExclude)
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}

	want := []string{"a.md", "guide/b.md", "z.md"}
	if len(docs) != len(want) {
		t.Fatalf("Expected %d documents, got %d: %+v", len(want), len(docs), docs)
	}
	for i, p := range want {
		if docs[i].Path != p {
			t.Errorf("doc %d: got path %q, want %q", i, docs[i].Path, p)
		}
	}
}

func TestChunkDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", strings.Repeat("abcdefghij", 150))
	writeFile(t, dir, "a.md", strings.Repeat("0123456789", 40))
	writeFile(t, dir, "empty.md", "  \n")
	writeFile(t, dir, "readme.txt", "not a document")

	chunks, err := ChunkDirectory(dir, Options{ChunkSize: 600, Overlap: 100})
	if err != nil {
		t.Fatalf("ChunkDirectory failed: %v", err)
	}

	type key struct {
		source string
		index  int
	}
	want := []key{{"a.md", 0}, {"b.md", 0}, {"b.md", 1}, {"b.md", 2}}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Source != w.source || chunks[i].ChunkIndex != w.index {
			t.Errorf("chunk %d: got %s#%d, want %s#%d", i, chunks[i].Source, chunks[i].ChunkIndex, w.source, w.index)
		}
	}

	if sources := Sources(chunks); len(sources) != 2 {
		t.Errorf("Expected 2 distinct sources, got %v", sources)
	}
}

func TestChunkDirectory_Nested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("guide", "setup.md"), "How to set up.")
	writeFile(t, dir, "intro.md", "This is the intro.")

	chunks, err := ChunkDirectory(dir, Options{})
	if err != nil {
		t.Fatalf("ChunkDirectory failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Source != "guide/setup.md" {
		t.Errorf("Expected slash-separated relative source, got %q", chunks[0].Source)
	}
}

func TestChunkDirectory_NotDirectory(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.md", "content")

	for _, root := range []string{filepath.Join(dir, "missing"), file} {
		_, err := ChunkDirectory(root, Options{})
		if !errors.Is(err, ErrNotDirectory) {
			t.Errorf("ChunkDirectory(%s): expected ErrNotDirectory, got %v", root, err)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
