package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/3leaps/relinstall/internal/model"
)

// LockFileName is written next to the tool file.
const LockFileName = "relinstall.lock"

const lockSchemaVersion = "1"

// LockedAsset pins the asset installed for one platform.
type LockedAsset struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	URLAPI   string `toml:"url_api,omitempty"`
	Checksum string `toml:"checksum,omitempty"`
	Size     int64  `toml:"size,omitempty"`
}

// LockFile maps "host/owner/repo@version" to per-platform pins. It is safe
// for concurrent use.
type LockFile struct {
	SchemaVersion string                            `toml:"schema_version"`
	Tools         map[string]map[string]LockedAsset `toml:"tools"`

	mu sync.RWMutex
}

// LoadLock reads the lockfile at path. A missing file yields an empty lock.
func LoadLock(path string) (*LockFile, error) {
	// #nosec G304 -- lock path derives from the config path
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &LockFile{SchemaVersion: lockSchemaVersion, Tools: map[string]map[string]LockedAsset{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}
	lf := &LockFile{}
	if err := toml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	if lf.SchemaVersion != "" && lf.SchemaVersion != lockSchemaVersion {
		return nil, fmt.Errorf("lock file schema_version %q is not supported", lf.SchemaVersion)
	}
	if lf.Tools == nil {
		lf.Tools = map[string]map[string]LockedAsset{}
	}
	return lf, nil
}

// Save writes the lockfile to path.
func (l *LockFile) Save(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SchemaVersion == "" {
		l.SchemaVersion = lockSchemaVersion
	}
	data, err := toml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal lock file: %w", err)
	}
	// #nosec G301 -- lock dir is the config dir
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	// #nosec G306 -- lock file is meant to be committed
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Lookup returns the asset pinned for ref@version on platformKey.
func (l *LockFile) Lookup(ref model.ToolRef, version, platformKey string) (model.Pin, bool) {
	if l == nil {
		return model.Pin{}, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	pinned, ok := l.Tools[lockKey(ref, version)][platformKey]
	if !ok || pinned.Name == "" {
		return model.Pin{}, false
	}
	return model.Pin{
		Asset:    model.Asset{Name: pinned.Name, BrowserDownloadURL: pinned.URL, URL: pinned.URLAPI, Size: pinned.Size},
		Checksum: pinned.Checksum,
	}, true
}

// Pin records asset as the one installed for ref@version on platformKey.
func (l *LockFile) Pin(ref model.ToolRef, version, platformKey string, asset model.Asset, checksum string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Tools == nil {
		l.Tools = map[string]map[string]LockedAsset{}
	}
	key := lockKey(ref, version)
	if l.Tools[key] == nil {
		l.Tools[key] = map[string]LockedAsset{}
	}
	l.Tools[key][platformKey] = LockedAsset{
		Name:     asset.Name,
		URL:      asset.BrowserDownloadURL,
		URLAPI:   asset.URL,
		Checksum: checksum,
		Size:     asset.Size,
	}
}

func lockKey(ref model.ToolRef, version string) string {
	return ref.String() + "@" + version
}

// LockPath returns the lockfile that belongs to the tool file at configPath.
func LockPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), LockFileName)
}
