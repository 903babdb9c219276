package wiring

import (
	"fmt"
	"path/filepath"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/config"
	"github.com/felixgeelhaar/rfpflow/pkg/storage"
)

// DeadLetterFile holds deliverables the insight webhook rejected.
const DeadLetterFile = "deadletters.jsonl"

// Workspace bundles the configuration and the files of an rfpflow workspace.
type Workspace struct {
	Root    string
	Repo    *storage.FilesystemRepository
	Config  *config.Config
	Journal *storage.FileEventStore
}

// NewWorkspace loads the configuration and opens the run journal under root.
func NewWorkspace(root string) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	return newWorkspace(root, cfg)
}

func newWorkspace(root string, cfg *config.Config) (*Workspace, error) {
	repo := storage.NewFilesystemRepository(root)
	journal, err := storage.NewFileEventStore(repo.Dir())
	if err != nil {
		return nil, fmt.Errorf("open run journal: %w", err)
	}
	return &Workspace{Root: root, Repo: repo, Config: cfg, Journal: journal}, nil
}

// workspacePath resolves p against the workspace directory unless it is absolute.
func (w *Workspace) workspacePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Repo.Dir(), p)
}

// rootPath resolves p against the project root unless it is absolute.
func (w *Workspace) rootPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Root, p)
}
