package update

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sandeepkv93/tasksync/internal/model"
)

// uiState is what survives a restart: where the user was and how the list
// was narrowed. The search query is not kept.
type uiState struct {
	View       View            `json:"view"`
	Status     model.Status    `json:"status,omitempty"`
	Priority   model.Priority  `json:"priority,omitempty"`
	CategoryID *int64          `json:"category_id,omitempty"`
	TagIDs     []int64         `json:"tag_ids,omitempty"`
	SortBy     model.SortField `json:"sort_by,omitempty"`
	SortOrder  model.SortOrder `json:"sort_order,omitempty"`
}

func (s uiState) apply(m *Model) {
	if isKnownView(s.View) {
		m.CurrentView = s.View
	}
	f := model.TaskFilter{
		Status:     s.Status,
		Priority:   s.Priority,
		CategoryID: s.CategoryID,
		TagIDs:     s.TagIDs,
		SortBy:     s.SortBy,
		SortOrder:  s.SortOrder,
	}
	if f.Validate() != nil {
		m.logger.Warn("ignoring invalid saved filter")
		return
	}
	m.Filter = f
}

func (m *Model) persistUIState() error {
	if strings.TrimSpace(m.statePath) == "" {
		return nil
	}
	dir := filepath.Dir(m.statePath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	st := uiState{
		View:       m.CurrentView,
		Status:     m.Filter.Status,
		Priority:   m.Filter.Priority,
		CategoryID: m.Filter.CategoryID,
		TagIDs:     m.Filter.TagIDs,
		SortBy:     m.Filter.SortBy,
		SortOrder:  m.Filter.SortOrder,
	}
	payload, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.statePath + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.statePath)
}

func loadUIState(path string) (uiState, error) {
	var st uiState
	raw, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return uiState{}, err
	}
	return st, nil
}
