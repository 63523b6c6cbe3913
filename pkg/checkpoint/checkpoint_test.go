package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCursorManager(t *testing.T) {
	t.Run("LoadMissingReturnsZero", func(t *testing.T) {
		mgr, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cursor, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load cursor: %v", err)
		}
		if cursor.QueryIndex != 0 || cursor.LastCompletedPage != 0 {
			t.Errorf("Expected zero cursor, got %+v", cursor)
		}
		if cursor.NextPage() != 1 {
			t.Errorf("Expected next page 1, got %d", cursor.NextPage())
		}
		if mgr.Exists() {
			t.Error("Expected no state file before first save")
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		dir := t.TempDir()
		mgr, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		if err := mgr.Save(Cursor{QueryIndex: 12, LastCompletedPage: 7}); err != nil {
			t.Fatalf("Failed to save cursor: %v", err)
		}

		// A fresh manager simulates a process restart.
		reopened, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cursor, err := reopened.Load()
		if err != nil {
			t.Fatalf("Failed to load cursor: %v", err)
		}
		if cursor.QueryIndex != 12 {
			t.Errorf("Expected query index 12, got %d", cursor.QueryIndex)
		}
		if cursor.LastCompletedPage != 7 {
			t.Errorf("Expected last page 7, got %d", cursor.LastCompletedPage)
		}
		if cursor.NextPage() != 8 {
			t.Errorf("Expected resume at page 8, got %d", cursor.NextPage())
		}
		if cursor.UpdatedAt.IsZero() {
			t.Error("Expected updated_at to be set")
		}

		if _, err := os.Stat(filepath.Join(dir, StateFileName+".tmp")); !os.IsNotExist(err) {
			t.Error("Temporary state file should not remain after save")
		}
	})

	t.Run("WireFormat", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, StateFileName),
			[]byte(`{"current_request_index": 5, "last_page": 3}`), 0644); err != nil {
			t.Fatalf("Failed to write state file: %v", err)
		}

		mgr, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		cursor, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load cursor: %v", err)
		}
		if cursor.QueryIndex != 5 || cursor.LastCompletedPage != 3 {
			t.Errorf("Expected {5,3}, got %+v", cursor)
		}
	})

	t.Run("AdvanceQuery", func(t *testing.T) {
		mgr, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		cursor := Cursor{QueryIndex: 4, LastCompletedPage: 9}
		if err := mgr.AdvanceQuery(&cursor); err != nil {
			t.Fatalf("Failed to advance: %v", err)
		}
		if cursor.QueryIndex != 5 || cursor.LastCompletedPage != 0 {
			t.Errorf("Expected {5,0}, got %+v", cursor)
		}

		loaded, err := mgr.Load()
		if err != nil {
			t.Fatalf("Failed to load cursor: %v", err)
		}
		if loaded.QueryIndex != 5 || loaded.LastCompletedPage != 0 {
			t.Errorf("Advance was not persisted, got %+v", loaded)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		mgr, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}

		if err := mgr.Save(Cursor{QueryIndex: 2, LastCompletedPage: 1}); err != nil {
			t.Fatalf("Failed to save cursor: %v", err)
		}
		if err := mgr.Reset(); err != nil {
			t.Fatalf("Failed to reset: %v", err)
		}
		if mgr.Exists() {
			t.Error("State file should be gone after reset")
		}

		// Resetting twice is not an error.
		if err := mgr.Reset(); err != nil {
			t.Fatalf("Second reset failed: %v", err)
		}
	})

	t.Run("CorruptFile", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, StateFileName), []byte("{not json"), 0644); err != nil {
			t.Fatalf("Failed to write state file: %v", err)
		}
		mgr, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if _, err := mgr.Load(); err == nil {
			t.Error("Expected error for corrupt state file")
		}
	})

	t.Run("NegativePosition", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, StateFileName),
			[]byte(`{"current_request_index": -1, "last_page": 0}`), 0644); err != nil {
			t.Fatalf("Failed to write state file: %v", err)
		}
		mgr, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if _, err := mgr.Load(); err == nil {
			t.Error("Expected error for negative query index")
		}
	})
}
