package embedder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func mkModelDir(t *testing.T, dir string, config, dense string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vocab.txt"), []byte("[PAD]\n[UNK]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if dense != "" {
		if err := os.MkdirAll(filepath.Join(dir, "2_Dense"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "2_Dense", "config.json"), []byte(dense), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func noEnv(string) string { return "" }

func TestResolver_Order(t *testing.T) {
	home := t.TempDir()
	envDir := mkModelDir(t, filepath.Join(t.TempDir(), "env-model"), "", "")
	deliverance := mkModelDir(t, filepath.Join(home, ".deliverance", deliveranceDir), "", "")

	getenv := func(k string) string {
		if k == ModelDirEnv {
			return envDir
		}
		return ""
	}

	tests := []struct {
		name       string
		explicit   string
		configured string
		getenv     func(string) string
		want       string
	}{
		{"explicit wins", "hash:16", "openai:text-embedding-3-small", getenv, "hash:16"},
		{"config before env", "", "ollama:nomic-embed-text", getenv, "ollama:nomic-embed-text"},
		{"env before caches", "", "", getenv, envDir},
		{"deliverance last", "", "", noEnv, deliverance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultResolver(tt.explicit, tt.configured, tt.getenv, home).Resolve()
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_HuggingFaceNewestSnapshot(t *testing.T) {
	home := t.TempDir()
	snapshots := filepath.Join(home, ".cache", "huggingface", "hub", hfRepoDir, "snapshots")
	older := mkModelDir(t, filepath.Join(snapshots, "aaa"), "", "")
	newer := mkModelDir(t, filepath.Join(snapshots, "bbb"), "", "")

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}
	mkModelDir(t, filepath.Join(home, ".deliverance", deliveranceDir), "", "")

	got, err := DefaultResolver("", "", noEnv, home).Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != newer {
		t.Errorf("got %q, want newest snapshot %q", got, newer)
	}
}

func TestResolver_ExplicitMissingDir(t *testing.T) {
	home := t.TempDir()
	mkModelDir(t, filepath.Join(home, ".deliverance", deliveranceDir), "", "")

	_, err := DefaultResolver(filepath.Join(home, "nope"), "", noEnv, home).Resolve()
	if err == nil || errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected explicit failure without fall-through, got %v", err)
	}
}

func TestResolver_Exhausted(t *testing.T) {
	_, err := DefaultResolver("", "", noEnv, t.TempDir()).Resolve()
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
	if !strings.Contains(err.Error(), "$"+ModelDirEnv) {
		t.Errorf("expected tried strategies in message, got %q", err)
	}
}

func TestDetectModelConfig(t *testing.T) {
	dir := mkModelDir(t, t.TempDir(), `{"hidden_size": 768, "num_hidden_layers": 12}`, `{"in_features": 768, "out_features": 256}`)

	cfg, err := DetectModelConfig(dir)
	if err != nil {
		t.Fatalf("DetectModelConfig failed: %v", err)
	}
	if cfg.HiddenSize != 768 || cfg.NumHiddenLayers != 12 {
		t.Errorf("unexpected parsed config %+v", cfg)
	}
	if cfg.VocabSize != 30522 {
		t.Errorf("expected default vocab size to survive, got %d", cfg.VocabSize)
	}
	if cfg.Dimension() != 256 {
		t.Errorf("expected projection dimension 256, got %d", cfg.Dimension())
	}
}

func TestDetectModelConfig_Defaults(t *testing.T) {
	cfg, err := DetectModelConfig(t.TempDir())
	if err != nil {
		t.Fatalf("DetectModelConfig failed: %v", err)
	}
	if cfg.Dimension() != 384 {
		t.Errorf("expected default dimension 384, got %d", cfg.Dimension())
	}
}

func TestOpen(t *testing.T) {
	dir := mkModelDir(t, t.TempDir(), `{"hidden_size": 32}`, "")

	tests := []struct {
		locator string
		dim     int
		wantErr bool
	}{
		{"hash:12", 12, false},
		{"hash:abc", 0, true},
		{"ollama:nomic-embed-text", 0, false},
		{"ollama:", 0, true},
		{"openai:text-embedding-3-large", 3072, false},
		{dir, 32, false},
		{filepath.Join(dir, "missing"), 0, true},
	}

	getenv := func(k string) string {
		if k == "OPENAI_API_KEY" {
			return "test-key"
		}
		return ""
	}

	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			r, err := Open(tt.locator, Options{Getenv: getenv})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if r.Dimension != tt.dim {
				t.Errorf("dimension: got %d, want %d", r.Dimension, tt.dim)
			}
		})
	}
}

func TestOpen_ModelDirWithoutVocab(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, Options{}); err == nil || !strings.Contains(err.Error(), "vocab.txt") {
		t.Errorf("expected vocab.txt error, got %v", err)
	}
}

func TestOpen_ModelDirIsHashed(t *testing.T) {
	dir := mkModelDir(t, t.TempDir(), `{"hidden_size": 32}`, "")

	r, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	want := fmt.Sprintf("leaf-%s (hashed, dim=32)", filepath.Base(dir))
	if got := r.Embedder.ModelInfo(); got != want {
		t.Errorf("model info: got %q, want %q", got, want)
	}
}
