package jsonfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/emergent-mind/internal/model"
)

func TestReadOrSeedCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "seed.json")
	seed := map[string]float64{"awe": 1}

	var got map[string]float64
	created, err := ReadOrSeed(path, seed, &got)
	if err != nil {
		t.Fatalf("read or seed: %v", err)
	}
	if !created {
		t.Error("expected file to be created")
	}
	if got["awe"] != 1 {
		t.Errorf("expected awe=1, got %v", got)
	}

	// Mutating the result must not touch the seed.
	got["awe"] = 5
	if seed["awe"] != 1 {
		t.Error("seed was aliased by the decoded value")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}
}

func TestReadOrSeedKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "w.json")
	if err := Write(path, map[string]float64{"calm": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got map[string]float64
	created, err := ReadOrSeed(path, map[string]float64{"awe": 1}, &got)
	if err != nil {
		t.Fatalf("read or seed: %v", err)
	}
	if created {
		t.Error("expected existing file to be used")
	}
	if _, ok := got["awe"]; ok {
		t.Error("seed should not be merged into an existing file")
	}
	if got["calm"] != 2 {
		t.Errorf("expected calm=2, got %v", got)
	}
}

func TestReadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	var got map[string]float64
	_, err := ReadOrSeed(path, map[string]float64{"awe": 1}, &got)
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	// The corrupt file must not be reseeded.
	data, _ := os.ReadFile(path)
	if string(data) != "{not json" {
		t.Errorf("corrupt file was overwritten: %q", data)
	}
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	if err := Write(path, []string{"a"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
