package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// envFiles are loaded from the project root, first file wins per variable.
var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads the project's dotenv files without overriding variables
// already present in the process environment.
func loadEnvFiles(root string) error {
	for _, name := range envFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
		slog.Debug("Loaded environment variables", slog.String("path", path))
	}
	return nil
}
