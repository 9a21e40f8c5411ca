package postprocess

import (
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"git.home.luguber.info/inful/inkpress/internal/foundation/errors"
)

// integritySelector matches the elements that load same-origin subresources.
const integritySelector = `script[src], link[rel="stylesheet"][href], link[rel="preload"][href], link[rel="modulepreload"][href]`

// HashCache memoizes subresource digests by file path.
type HashCache struct {
	mu     sync.Mutex
	hashes map[string]string
}

// NewHashCache creates an empty cache.
func NewHashCache() *HashCache {
	return &HashCache{hashes: make(map[string]string)}
}

// Digest returns the sha384 integrity value of the file at p.
func (c *HashCache) Digest(p string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.hashes[p]; ok {
		return h, nil
	}
	data, err := os.ReadFile(p) // #nosec G304 -- asset under the output directory
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "read subresource").
			WithPath(p).
			Fatal().
			Build()
	}
	sum := sha512.Sum384(data)
	h := "sha384-" + base64.StdEncoding.EncodeToString(sum[:])
	c.hashes[p] = h
	return h, nil
}

// Len reports the number of cached digests.
func (c *HashCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

// sameOrigin reports whether ref is a root-relative URL.
func sameOrigin(ref string) bool {
	return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
}

// assetPath maps a root-relative URL to its file under outDir.
func assetPath(outDir, ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	clean := strings.TrimPrefix(path.Clean(ref), "/")
	return filepath.Join(outDir, filepath.FromSlash(clean))
}

// AddIntegrity sets integrity and crossorigin on every same-origin
// subresource of doc. It reports the number of elements updated.
func AddIntegrity(doc *goquery.Document, outDir string, cache *HashCache) (int, error) {
	var (
		updated  int
		firstErr error
	)
	doc.Find(integritySelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		attr := "href"
		if goquery.NodeName(s) == "script" {
			attr = "src"
		}
		ref, _ := s.Attr(attr)
		if !sameOrigin(ref) {
			return true
		}
		h, err := cache.Digest(assetPath(outDir, ref))
		if err != nil {
			firstErr = err
			return false
		}
		s.SetAttr("integrity", h)
		s.SetAttr("crossorigin", "anonymous")
		updated++
		return true
	})
	return updated, firstErr
}
