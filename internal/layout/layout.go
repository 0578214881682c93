// Package layout decides how an extracted release is flattened and where its
// executables live.
package layout

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/placeholder"
	"github.com/3leaps/relinstall/internal/platform"
)

// Root is the bin directory value meaning "the stripped root itself".
const Root = "."

// Options are the layout knobs from ToolOptions.
type Options struct {
	// StripComponents is used verbatim when set; nil means auto-detect.
	StripComponents *int
	// BinPath is a placeholder template for the bin directory.
	BinPath string
}

// Layout is the outcome for an archive.
type Layout struct {
	StripComponents int
	// BinDir is slash separated and relative to the stripped root.
	BinDir string
}

// Resolve inspects an unstripped extracted tree.
func Resolve(tree fs.FS, opts Options, ctx placeholder.Context) (Layout, error) {
	strip, err := stripCount(tree, opts.StripComponents)
	if err != nil {
		return Layout{}, err
	}

	if opts.BinPath != "" {
		dir, err := cleanRelative(placeholder.Expand(opts.BinPath, ctx))
		if err != nil {
			return Layout{}, err
		}
		return Layout{StripComponents: strip, BinDir: dir}, nil
	}

	roots, err := StrippedRoots(tree, strip)
	if err != nil {
		return Layout{}, err
	}
	return Layout{StripComponents: strip, BinDir: findBinDir(tree, roots)}, nil
}

func stripCount(tree fs.FS, explicit *int) (int, error) {
	if explicit != nil {
		if *explicit < 0 {
			return 0, failure.New(failure.KindInvalidInput, "strip_components must be 0 or more",
				"invalid strip_components %d", *explicit)
		}
		return *explicit, nil
	}
	entries, err := fs.ReadDir(tree, ".")
	if err != nil {
		return 0, fmt.Errorf("read extracted root: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return 1, nil
	}
	return 0, nil
}

// StrippedRoots lists the directories that become the root once strip leading
// path components are removed, in listing order. Their contents merge.
func StrippedRoots(tree fs.FS, strip int) ([]string, error) {
	roots := []string{"."}
	for depth := 0; depth < strip; depth++ {
		var next []string
		for _, dir := range roots {
			entries, err := fs.ReadDir(tree, dir)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", dir, err)
			}
			for _, e := range entries {
				if e.IsDir() {
					next = append(next, path.Join(dir, e.Name()))
				}
			}
		}
		roots = next
	}
	return roots, nil
}

func findBinDir(tree fs.FS, roots []string) string {
	for _, root := range roots {
		if isDir(tree, path.Join(root, "bin")) {
			return "bin"
		}
	}
	for _, root := range roots {
		entries, err := fs.ReadDir(tree, root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && isDir(tree, path.Join(root, e.Name(), "bin")) {
				return e.Name() + "/bin"
			}
		}
	}
	return Root
}

func isDir(tree fs.FS, name string) bool {
	info, err := fs.Stat(tree, name)
	return err == nil && info.IsDir()
}

func cleanRelative(p string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleaned == "" || path.IsAbs(cleaned) || !fs.ValidPath(cleaned) {
		return "", failure.New(failure.KindInvalidInput, "bin_path must stay inside the extracted archive",
			"invalid bin_path %q", p)
	}
	return cleaned, nil
}

// BinaryName names a downloaded single-file binary. bin wins when set;
// otherwise trailing OS and arch tokens are removed, keeping ".exe".
func BinaryName(assetName, bin string) string {
	if bin != "" {
		return bin
	}
	stem, ext := assetName, ""
	if strings.HasSuffix(strings.ToLower(stem), ".exe") {
		stem, ext = stem[:len(stem)-4], stem[len(stem)-4:]
	}
	trimmed := platform.TrimSuffixTokens(stem)
	if trimmed == "" {
		trimmed = stem
	}
	return trimmed + ext
}
