package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FileDeliverableStore writes deliverables as JSON under
// <dir>/<projectID>/<runID>.json.
type FileDeliverableStore struct {
	dir string
}

func NewFileDeliverableStore(dir string) *FileDeliverableStore {
	return &FileDeliverableStore{dir: dir}
}

// Dir returns the base directory.
func (s *FileDeliverableStore) Dir() string {
	return s.dir
}

func (s *FileDeliverableStore) SaveDeliverable(ctx context.Context, projectID string, d *analysis.Deliverable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("save deliverable: nil deliverable")
	}
	path, err := s.resolve(projectID, d.RunID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deliverable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write deliverable: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("save deliverable: %w", err)
	}
	return nil
}

// LoadDeliverable reads a previously saved deliverable.
func (s *FileDeliverableStore) LoadDeliverable(projectID, runID string) (*analysis.Deliverable, error) {
	path, err := s.resolve(projectID, runID)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- Path is validated via resolve
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deliverable: %w", err)
	}
	var d analysis.Deliverable
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal deliverable: %w", err)
	}
	return &d, nil
}

func (s *FileDeliverableStore) resolve(projectID, runID string) (string, error) {
	if !safeName.MatchString(projectID) {
		return "", fmt.Errorf("invalid project id: %q", projectID)
	}
	if !safeName.MatchString(runID) {
		return "", fmt.Errorf("invalid run id: %q", runID)
	}
	base := filepath.Clean(s.dir)
	path := filepath.Clean(filepath.Join(base, projectID, runID+".json"))
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid deliverable path: %s", path)
	}
	return path, nil
}
