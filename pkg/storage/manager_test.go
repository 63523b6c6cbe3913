package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Exists("US123") {
		t.Error("Expected Exists to return false for non-existent file")
	}

	testData := []byte("test image data")
	filename, err := manager.SaveImage("US123", bytes.NewReader(testData))
	if err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}
	if filename != "US123.jpg" {
		t.Errorf("Expected filename US123.jpg, got %s", filename)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "US123.jpg"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}
	if !manager.Exists("US123") {
		t.Error("Expected Exists to return true for saved file")
	}

	// No temporary files should remain
	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file, got %d", len(entries))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSaveImageFailureLeavesNothing(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := manager.SaveImage("US999", failingReader{}); err == nil {
		t.Fatal("Expected error from failing reader")
	}

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("Expected empty directory after failed save, got %d entries", len(entries))
	}
}

func TestSaveImageRejectsPathIDs(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := manager.SaveImage(id, bytes.NewReader(nil)); err == nil {
			t.Errorf("Expected error for id %q", id)
		}
	}
}

func TestListAndCleanTemp(t *testing.T) {
	tempDir := t.TempDir()
	for _, name := range []string{"B.jpg", "A.jpg", "notes.txt", "C.jpg.123.tmp"} {
		if err := os.WriteFile(filepath.Join(tempDir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tempDir, "dir.jpg"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	names, err := manager.ListImageFilenames()
	if err != nil {
		t.Fatalf("Failed to list images: %v", err)
	}
	if len(names) != 2 || names[0] != "A.jpg" || names[1] != "B.jpg" {
		t.Errorf("Expected [A.jpg B.jpg], got %v", names)
	}

	removed, err := manager.CleanTemp()
	if err != nil {
		t.Fatalf("Failed to clean temp files: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 temp file removed, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "C.jpg.123.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temp file to be removed")
	}
}

func TestIDFromFilename(t *testing.T) {
	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"US500000087654321.jpg", "US500000087654321", true},
		{"image.png", "", false},
		{".jpg", "", false},
		{"a.jpg.json", "", false},
	}

	for _, tt := range tests {
		id, ok := IDFromFilename(tt.name)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("IDFromFilename(%q) = (%q, %v), want (%q, %v)", tt.name, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
