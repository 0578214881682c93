// Package extract unpacks downloaded release assets into a directory.
package extract

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/3leaps/relinstall/internal/model"
)

// Extractor writes archives and single files to disk.
type Extractor struct{}

// Extract unpacks data into dest according to the archive format implied by
// name. Non-archives are written as one executable file called name.
func (Extractor) Extract(name string, data []byte, dest string) (fs.FS, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("prepare extract dir: %w", err)
	}
	if err := extract(model.DetectArchiveFormat(name), name, data, dest); err != nil {
		return nil, err
	}
	return os.DirFS(dest), nil
}

func extract(format model.ArchiveFormat, name string, data []byte, dest string) error {
	switch format {
	case model.ArchiveFormatZip:
		return extractZip(data, dest)
	case model.ArchiveFormatTarGz:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		return untarStream(gz, dest)
	case model.ArchiveFormatTarZst:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		return untarStream(zr, dest)
	case model.ArchiveFormatTarXz:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("xz reader: %w", err)
		}
		return untarStream(xr, dest)
	case model.ArchiveFormatTarBz2:
		return untarStream(bzip2.NewReader(bytes.NewReader(data)), dest)
	case model.ArchiveFormatTar:
		return untarStream(bytes.NewReader(data), dest)
	case model.ArchiveFormatNone:
		return writeFile(filepath.Join(dest, filepath.Base(name)), bytes.NewReader(data), 0o755)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

func extractZip(data []byte, dest string) error {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	for _, file := range reader.File {
		target, err := confined(dest, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s: %w", file.Name, err)
		}
		err = writeFile(target, rc, fileMode(file.Mode()))
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func untarStream(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		target, err := confined(dest, header.Name)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, fileMode(os.FileMode(header.Mode))); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlink(dest, target, header.Linkname); err != nil {
				return err
			}
		default:
			// Ignore other entry types.
		}
	}
	return nil
}

// safeJoin resolves an archive entry name under dest, rejecting entries that
// would land outside it.
func safeJoin(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the extract dir", name)
	}
	return filepath.Join(dest, clean), nil
}

// confined is safeJoin plus a check that no existing path component below
// dest, the entry itself included, is a symlink. Links created earlier in the
// same archive could otherwise redirect later entries outside dest.
func confined(dest, name string) (string, error) {
	target, err := safeJoin(dest, name)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(dest, target)
	if err != nil {
		return "", fmt.Errorf("archive entry %q escapes the extract dir", name)
	}
	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." || part == "" {
			continue
		}
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return target, nil
		}
		if err != nil {
			return "", fmt.Errorf("inspect %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("archive entry %q passes through symlink %s", name, cur)
		}
	}
	return target, nil
}

func symlink(dest, target, linkname string) error {
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), resolved)
	}
	rel, err := filepath.Rel(dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(linkname) {
		return fmt.Errorf("symlink %s -> %s escapes the extract dir", target, linkname)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare link %s: %w", target, err)
	}
	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("create link %s: %w", target, err)
	}
	return nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	// #nosec G304 -- target is confined to the extract dir by safeJoin
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	// #nosec G110 -- release archives are verified before extraction
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

// fileMode keeps permission bits and guarantees the owner can read and write.
func fileMode(m os.FileMode) os.FileMode {
	return m.Perm() | 0o600
}
