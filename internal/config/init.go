package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# inkpress site configuration
name: My Notebook
url: https://example.org
default_lang: en
theme: normal

# Top-level content directories listed here become categories, in this order.
categories:
  blog: Blog
  notes: Notes

git:
  repo: https://github.com/example/notebook

social:
  github: example
  email: me@example.org

markdown:
  container:
    warning_label: WARNING
    error_label: ERROR
    info_label: INFO
    expander_label: MORE
  history_label: Revision history
  code:
    light_theme: catppuccin-latte
    dark_theme: onedark

paths:
  content: content
  output: dist/static
  generated: .inkpress

build:
  # Commands of the UI framework's bundler. Leave empty to use the built-in renderer.
  # client_command: [npx, vite, build, --ssrManifest, --outDir, dist/static]
  # server_command: [npx, vite, build, --ssr, src/entry-server.ts, --outDir, dist/server]
  # render_command: [node, dist/server/render.js]
  search_command: [pagefind, --site, "{dir}"]
`

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if _, err := Parse([]byte(exampleConfig)); err != nil {
		return fmt.Errorf("example configuration is invalid: %w", err)
	}
	return os.WriteFile(path, []byte(exampleConfig), 0o600)
}
