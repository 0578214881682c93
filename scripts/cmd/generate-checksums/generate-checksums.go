// Command generate-checksums writes checksum manifests for release artifacts
// and prints relinstall.toml pins for them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/3leaps/relinstall/internal/verify"
)

var manifestNames = map[string]string{
	verify.AlgoSHA256:  "SHA256SUMS",
	verify.AlgoSHA512:  "SHA512SUMS",
	verify.AlgoBlake2b: "B2SUMS",
}

func main() {
	dir := flag.String("dir", "dist/release", "directory containing release artifacts")
	algos := flag.String("algos", "sha256,sha512", "comma-separated list of hash algorithms (sha256, sha512, blake2b)")
	prefix := flag.String("prefix", "", "only hash artifacts whose name starts with this prefix")
	pins := flag.Bool("pins", false, "print checksum and size pins for relinstall.toml")
	flag.Parse()

	if err := run(os.Stdout, *dir, *algos, *prefix, *pins); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, dir, algoList, prefix string, pins bool) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return errors.New("directory is required")
	}
	if err := ensureDir(dir); err != nil {
		return err
	}

	algos, err := parseAlgos(algoList)
	if err != nil {
		return err
	}
	if len(algos) == 0 {
		return errors.New("no hash algorithms specified")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	files := filterFiles(entries, prefix)
	if len(files) == 0 {
		return fmt.Errorf("no release artifacts found in %s", dir)
	}
	sort.Strings(files)

	contents := make(map[string][]byte, len(files))
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- build tool reading release assets
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		contents[name] = data
	}

	for _, algo := range algos {
		if err := writeManifest(dir, files, contents, algo); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%d entries)\n", filepath.Join(dir, manifestNames[algo]), len(files))
	}

	if pins {
		for _, name := range files {
			sum, err := verify.Digest(algos[0], contents[name])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n# %s\nchecksum = \"%s:%s\"\nsize = %d\n", name, algos[0], sum, len(contents[name]))
		}
	}
	return nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory %s not found", dir)
		}
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func parseAlgos(list string) ([]string, error) {
	var algos []string
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(list, ",") {
		algo := strings.ToLower(strings.TrimSpace(raw))
		if algo == "" {
			continue
		}
		if _, ok := seen[algo]; ok {
			continue
		}
		if _, ok := manifestNames[algo]; !ok {
			return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
		}
		seen[algo] = struct{}{}
		algos = append(algos, algo)
	}
	return algos, nil
}

func filterFiles(entries []os.DirEntry, prefix string) []string {
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if skipFile(name) || !strings.HasPrefix(name, prefix) {
			continue
		}
		files = append(files, name)
	}
	return files
}

// skipFile reports signatures and checksum files, which are never hashed.
func skipFile(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".asc", ".sig", ".minisig", ".sha256", ".sha256.txt", ".sha512", ".sha512.txt", ".b2"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	for _, manifest := range manifestNames {
		if strings.EqualFold(name, manifest) {
			return true
		}
	}
	if verify.DetectChecksumAlgorithm(name, "") != "" {
		return true
	}
	switch lower {
	case "checksums.txt", "checksum.txt":
		return true
	}
	return false
}

func writeManifest(dir string, files []string, contents map[string][]byte, algo string) error {
	var b strings.Builder
	for _, name := range files {
		sum, err := verify.Digest(algo, contents[name])
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, name)
	}
	outPath := filepath.Join(dir, manifestNames[algo])
	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil { // #nosec G306 -- manifests are public
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	return nil
}
