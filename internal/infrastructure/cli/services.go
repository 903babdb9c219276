package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/wiring"
)

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

func loadAppForCurrentDir() (*wiring.App, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	app, err := wiring.BuildApp(root, slog.Default())
	if err != nil {
		return nil, NewCLIError("failed to load workspace", "Run 'rfpflow config init' and review .rfpflow/config.yaml", err)
	}
	return app, nil
}
