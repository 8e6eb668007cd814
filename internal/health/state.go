package health

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// State tracks scheduler run health across restarts.
type State struct {
	LastSuccessAt time.Time `json:"last_success_at"`
	LastErrorAt   time.Time `json:"last_error_at"`
	LastError     string    `json:"last_error"`
	ErrorStreak   int       `json:"error_streak"`
	TotalRuns     int       `json:"total_runs"`
	TotalErrors   int       `json:"total_errors"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LoadState reads the health state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the health state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
