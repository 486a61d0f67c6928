package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"confplan/internal/model"
)

// selectionDoc is the on-disk shape of the personal calendar. The order of
// IDs is the user's insertion order and is preserved round-trip.
type selectionDoc struct {
	Selected []string `json:"selected"`
}

// LoadSelection reads the personal calendar document. A missing file is an
// empty selection, not an error.
func (s *Store) LoadSelection() (*model.Selection, error) {
	data, err := os.ReadFile(s.selectionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewSelection(nil), nil
		}
		return nil, fmt.Errorf("store: read calendar: %w", err)
	}

	var doc selectionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("store: decode calendar: %w", err)
	}
	return model.NewSelection(doc.Selected), nil
}

// SaveSelection persists the personal calendar atomically. It is a separate
// document with its own lifecycle: snapshot sync never writes here.
func (s *Store) SaveSelection(sel *model.Selection) error {
	if sel == nil {
		return errors.New("store: selection is nil")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	data, err := json.MarshalIndent(selectionDoc{Selected: sel.IDs()}, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode calendar: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".my_calendar-*.tmp")
	if err != nil {
		return fmt.Errorf("store: temp calendar: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close calendar: %w", err)
	}

	if err := os.Rename(tmpName, s.selectionPath()); err != nil {
		return fmt.Errorf("store: replace calendar: %w", err)
	}
	return nil
}

// SelectionPath exposes the document location for user-facing messages.
func (s *Store) SelectionPath() string {
	return filepath.Clean(s.selectionPath())
}
