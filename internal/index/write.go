package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/inkpress/internal/config"
	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
)

// UnknownSHA is reported when no commit can be determined.
const UnknownSHA = "unknown"

// Context is the site context module consumed by the UI.
type Context struct {
	GitHubSHA string         `json:"githubSHA"`
	Config    *config.Config `json:"config"`
}

// WriteJSON writes the page index.
func WriteJSON(path string, pages []Page) error {
	if pages == nil {
		pages = []Page{}
	}
	return writeJSON(path, pages)
}

// WriteContext writes the context module. An empty sha is written as
// UnknownSHA.
func WriteContext(path string, cfg *config.Config, sha string) error {
	if sha == "" {
		sha = UnknownSHA
	}
	return writeJSON(path, Context{GitHubSHA: sha, Config: cfg})
}

// ResolveSHA picks the commit reported in the context module: GITHUB_SHA
// when set, else head, else UnknownSHA.
func ResolveSHA(head string) string {
	if sha := os.Getenv("GITHUB_SHA"); sha != "" {
		return sha
	}
	if head != "" {
		return head
	}
	return UnknownSHA
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "encode json").
			WithPath(path).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create directory").
			WithPath(path).
			Build()
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write file").
			WithPath(path).
			Build()
	}
	return nil
}
