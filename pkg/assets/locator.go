package assets

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/angelmondragon/notifyd/pkg/config"
)

// ErrNotFound is returned when no configured directory holds the asset.
var ErrNotFound = errors.New("asset not found")

// Locator resolves logical asset names to files on disk and to public paths.
type Locator struct {
	dirs      []string
	urlPrefix string
}

func NewLocator(cfg config.AssetsConfig) *Locator {
	dirs := make([]string, 0, len(cfg.Dirs))
	for _, dir := range cfg.Dirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.URLPrefix), "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Locator{dirs: dirs, urlPrefix: prefix}
}

// Find returns the on-disk path of the named asset. The name must stay
// inside the asset directories.
func (l *Locator) Find(name string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(name))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrNotFound
	}
	for _, dir := range l.dirs {
		candidate := filepath.Join(dir, clean)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", ErrNotFound
}

// URL returns the public path for an asset, e.g. "/assets/logo.png".
func (l *Locator) URL(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	return path.Join("/", l.urlPrefix, name)
}

// Dirs exposes the directories served under URLPrefix.
func (l *Locator) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Prefix is the public URL prefix assets are served under.
func (l *Locator) Prefix() string {
	return l.urlPrefix
}
