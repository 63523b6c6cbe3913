package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tmscraper/pkg/logger"
)

// StateFileName is the cursor file inside the state directory.
const StateFileName = "state.json"

// Cursor is the durable crawl position: the query being walked and the last
// page whose downloads fully drained. Page 0 means no page of the query is done.
type Cursor struct {
	QueryIndex        int       `json:"current_request_index"`
	LastCompletedPage int       `json:"last_page"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NextPage is the page the crawl resumes at.
func (c Cursor) NextPage() int {
	return c.LastCompletedPage + 1
}

// Manager handles cursor persistence
type Manager struct {
	statePath string
	logger    logger.Logger
}

// NewManager creates a cursor manager storing state.json in stateDir
func NewManager(stateDir string) (*Manager, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	return &Manager{
		statePath: filepath.Join(stateDir, StateFileName),
		logger:    logger.GetLogger(),
	}, nil
}

// Path returns the cursor file location
func (m *Manager) Path() string {
	return m.statePath
}

// Load reads the cursor. A missing file yields the zero cursor.
func (m *Manager) Load() (Cursor, error) {
	file, err := os.Open(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{}, nil
		}
		return Cursor{}, fmt.Errorf("failed to open state file: %w", err)
	}
	defer file.Close()

	var cursor Cursor
	if err := json.NewDecoder(file).Decode(&cursor); err != nil {
		return Cursor{}, fmt.Errorf("failed to decode state file: %w", err)
	}
	if cursor.QueryIndex < 0 || cursor.LastCompletedPage < 0 {
		return Cursor{}, fmt.Errorf("state file holds negative position (query %d, page %d)",
			cursor.QueryIndex, cursor.LastCompletedPage)
	}

	m.logger.InfoWithFields("Cursor loaded", map[string]interface{}{
		"query_index": cursor.QueryIndex,
		"last_page":   cursor.LastCompletedPage,
		"updated_at":  cursor.UpdatedAt,
	})

	return cursor, nil
}

// Save writes the cursor to disk atomically
func (m *Manager) Save(cursor Cursor) error {
	cursor.UpdatedAt = time.Now().UTC()

	tempPath := m.statePath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cursor); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode cursor: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync state file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close state file: %w", err)
	}

	if err := os.Rename(tempPath, m.statePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	m.logger.DebugWithFields("Cursor saved", map[string]interface{}{
		"query_index": cursor.QueryIndex,
		"last_page":   cursor.LastCompletedPage,
	})

	return nil
}

// AdvanceQuery moves the cursor to the start of the next query and persists it.
func (m *Manager) AdvanceQuery(cursor *Cursor) error {
	cursor.QueryIndex++
	cursor.LastCompletedPage = 0
	return m.Save(*cursor)
}

// Reset removes the cursor file so the next crawl starts from the first query.
func (m *Manager) Reset() error {
	if err := os.Remove(m.statePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}

	m.logger.Info("Cursor reset")
	return nil
}

// Exists checks if a cursor file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.statePath)
	return err == nil
}
