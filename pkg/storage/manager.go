package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// ImageExt is the extension every stored image carries.
	ImageExt = ".jpg"
	tempExt  = ".tmp"
)

// Manager writes images into the output directory
type Manager struct {
	outputDir string
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// FilenameFor returns the stored filename for an item id
func FilenameFor(id string) string {
	return id + ImageExt
}

// IDFromFilename returns the item id for a stored filename, or false when
// the name is not an image file.
func IDFromFilename(name string) (string, bool) {
	if filepath.Ext(name) != ImageExt {
		return "", false
	}
	id := strings.TrimSuffix(name, ImageExt)
	if id == "" {
		return "", false
	}
	return id, true
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid item id %q", id)
	}
	return nil
}

// Path returns the full path of the image for id
func (m *Manager) Path(id string) string {
	return filepath.Join(m.outputDir, FilenameFor(id))
}

// SaveImage writes the image for id. The file only appears under its final
// name once its content is complete and synced to disk.
func (m *Manager) SaveImage(id string, r io.Reader) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	filename := FilenameFor(id)
	finalPath := filepath.Join(m.outputDir, filename)

	out, err := os.CreateTemp(m.outputDir, filename+".*"+tempExt)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempFile := out.Name()

	_, err = io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, finalPath); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filename, nil
}

// Exists reports whether the image for id is on disk
func (m *Manager) Exists(id string) bool {
	_, err := os.Stat(m.Path(id))
	return err == nil
}

// ListImageFilenames returns the names of all stored images, sorted
func (m *Manager) ListImageFilenames() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := IDFromFilename(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CleanTemp removes temporary files left behind by an interrupted write
// and returns how many were removed.
func (m *Manager) CleanTemp() (int, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != tempExt {
			continue
		}
		if err := os.Remove(filepath.Join(m.outputDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
