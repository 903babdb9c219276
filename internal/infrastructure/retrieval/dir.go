package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var safeDocumentID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// DirRetriever reads sidecar context files named <documentID>.txt or
// <documentID>.md from a directory. A missing file means no context.
type DirRetriever struct {
	dir string
}

func NewDirRetriever(dir string) *DirRetriever {
	return &DirRetriever{dir: dir}
}

func (r *DirRetriever) RetrieveContext(ctx context.Context, documentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !safeDocumentID.MatchString(documentID) || strings.Contains(documentID, "..") {
		return "", fmt.Errorf("invalid document id %q", documentID)
	}

	for _, ext := range []string{".txt", ".md"} {
		// #nosec G304 -- documentID is validated above
		data, err := os.ReadFile(filepath.Join(r.dir, documentID+ext))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read context for %s: %w", documentID, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", nil
}
