package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tmscraper/pkg/models"
)

// sidecarExt is appended to the image path
const sidecarExt = ".json"

// TrademarkMetadata is written next to a downloaded image
type TrademarkMetadata struct {
	ID                string    `json:"id"`
	ImageURL          string    `json:"image_url"`
	Name              string    `json:"name,omitempty"`
	Office            string    `json:"office,omitempty"`
	ApplicationNumber string    `json:"application_number,omitempty"`
	ApplicationDate   string    `json:"application_date,omitempty"`
	Status            string    `json:"status,omitempty"`
	FileSize          int64     `json:"file_size"`
	DownloadedAt      time.Time `json:"downloaded_at"`
}

// FromItem builds the metadata for a stored item
func FromItem(item models.Item, fileSize int64) *TrademarkMetadata {
	return &TrademarkMetadata{
		ID:                item.ID,
		ImageURL:          item.ImageURL,
		Name:              item.Name,
		Office:            item.Office,
		ApplicationNumber: item.ApplicationNumber,
		ApplicationDate:   item.ApplicationDate,
		Status:            item.Status,
		FileSize:          fileSize,
		DownloadedAt:      time.Now().UTC(),
	}
}

// Save writes the metadata next to the image
func (m *TrademarkMetadata) Save(imagePath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(imagePath+sidecarExt, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	return nil
}

// Load reads the metadata stored next to an image
func Load(imagePath string) (*TrademarkMetadata, error) {
	data, err := os.ReadFile(imagePath + sidecarExt)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta TrademarkMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &meta, nil
}

// Exists checks if a metadata file exists for an image
func Exists(imagePath string) bool {
	_, err := os.Stat(imagePath + sidecarExt)
	return err == nil
}

// CleanOrphaned removes sidecars whose image is gone and returns how many were removed
func CleanOrphaned(directory string) (int, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jpg"+sidecarExt) {
			continue
		}
		imagePath := filepath.Join(directory, strings.TrimSuffix(name, sidecarExt))
		if _, err := os.Stat(imagePath); !os.IsNotExist(err) {
			continue
		}
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			return removed, fmt.Errorf("failed to remove orphaned metadata %s: %w", name, err)
		}
		removed++
	}

	return removed, nil
}
