// Package place copies the content of a verified installation plan into its
// final directory.
package place

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/3leaps/relinstall/internal/hostenv"
	"github.com/3leaps/relinstall/internal/layout"
	"github.com/3leaps/relinstall/internal/planner"
)

// MarkerFile records what was installed into a directory.
const MarkerFile = ".relinstall.json"

// Marker is the content of MarkerFile.
type Marker struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Tag     string `json:"tag"`
	Asset   string `json:"asset"`
	SHA256  string `json:"sha256"`
}

// Result describes a finished placement.
type Result struct {
	Dest   string
	BinDir string
	// Binaries lists the files found in BinDir.
	Binaries []string
	// Mount is the filesystem holding Dest, nil when the mount table is unavailable.
	Mount *hostenv.Mount
}

// NoExec reports whether binaries in Dest cannot be executed.
func (r Result) NoExec() bool {
	return r.Mount != nil && r.Mount.NoExec()
}

// Install replaces dest with the plan's content. The new tree is staged next
// to dest and swapped in once complete.
func Install(plan *planner.InstallationPlan, dest string) (Result, error) {
	if !plan.Verified() {
		return Result{}, errors.New("refusing to install an unverified plan")
	}
	dest = filepath.Clean(dest)
	// #nosec G301 -- install parent is user-chosen
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("mkdir %s: %w", filepath.Dir(dest), err)
	}
	stage, err := os.MkdirTemp(filepath.Dir(dest), "."+filepath.Base(dest)+"-")
	if err != nil {
		return Result{}, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	if plan.Archive {
		roots, err := layout.StrippedRoots(plan.Tree, plan.StripComponents)
		if err != nil {
			return Result{}, err
		}
		for _, root := range roots {
			if err := copyTree(plan.Tree, root, stage); err != nil {
				return Result{}, err
			}
		}
	} else {
		data, err := fs.ReadFile(plan.Tree, plan.Asset.Name)
		if err != nil {
			return Result{}, fmt.Errorf("read %s: %w", plan.Asset.Name, err)
		}
		if err := writeFile(filepath.Join(stage, plan.Rename), data, 0o755); err != nil {
			return Result{}, err
		}
	}

	if err := writeMarker(plan, stage); err != nil {
		return Result{}, err
	}
	binDir := filepath.Join(stage, filepath.FromSlash(plan.BinDir))
	binaries, err := markExecutable(binDir)
	if err != nil {
		return Result{}, err
	}

	if err := os.RemoveAll(dest); err != nil {
		return Result{}, fmt.Errorf("remove previous install %s: %w", dest, err)
	}
	if err := os.Rename(stage, dest); err != nil {
		return Result{}, fmt.Errorf("install to %s: %w", dest, err)
	}

	res := Result{Dest: dest, BinDir: filepath.Join(dest, filepath.FromSlash(plan.BinDir))}
	for _, b := range binaries {
		res.Binaries = append(res.Binaries, filepath.Join(res.BinDir, b))
	}
	if mount, ok := hostenv.MountOf(dest); ok {
		res.Mount = &mount
	}
	return res, nil
}

// ReadMarker returns the marker of a previous install in dir. ok is false when
// dir holds no install.
func ReadMarker(dir string) (Marker, bool, error) {
	// #nosec G304 -- marker path derived from install dir
	data, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, fmt.Errorf("read install marker: %w", err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, false, fmt.Errorf("parse install marker: %w", err)
	}
	return m, true, nil
}

func writeMarker(plan *planner.InstallationPlan, dir string) error {
	data, err := json.MarshalIndent(Marker{
		Tool:    plan.Tool.String(),
		Version: plan.Version.Version,
		Tag:     plan.Version.Tag,
		Asset:   plan.Asset.Name,
		SHA256:  plan.Receipt().SHA256(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode install marker: %w", err)
	}
	return writeFile(filepath.Join(dir, MarkerFile), append(data, '\n'), 0o644)
}

func copyTree(tree fs.FS, root, dest string) error {
	return fs.WalkDir(tree, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := p
		if root != "." {
			rel = p[len(root):]
		}
		target := filepath.Join(dest, filepath.FromSlash(path.Clean("/" + rel))[1:])
		if d.IsDir() {
			// #nosec G301 -- staging dir
			return os.MkdirAll(target, 0o755)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
			return nil
		}
		data, err := fs.ReadFile(tree, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		return writeFile(target, data, info.Mode().Perm()|0o600)
	})
}

func markExecutable(binDir string) ([]string, error) {
	entries, err := os.ReadDir(binDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bin dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == MarkerFile {
			continue
		}
		names = append(names, e.Name())
		if runtime.GOOS == "windows" {
			continue
		}
		// #nosec G302 -- installed binaries must be executable
		if err := os.Chmod(filepath.Join(binDir, e.Name()), 0o755); err != nil {
			return nil, fmt.Errorf("chmod %s: %w", e.Name(), err)
		}
	}
	return names, nil
}

func writeFile(target string, data []byte, mode os.FileMode) error {
	// #nosec G301 -- staging dir
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", target, err)
	}
	if err := os.WriteFile(target, data, mode); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
