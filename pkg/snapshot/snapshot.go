// Package snapshot exports the local store to a .tar.gz archive and restores
// it. Restores keep modification times, so after a restore the store's own
// creation times no longer match the ledger.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/glorpus-work/spm/pkg/errors"
	"github.com/glorpus-work/spm/pkg/fsutil"
)

// Summary counts the regular files of a snapshot.
type Summary struct {
	Files int
	Bytes int64
}

// Export writes a gzip compressed tarball of root to archivePath.
func Export(ctx context.Context, root, archivePath string) (*Summary, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for store root: %w", err)
	}
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for archive: %w", err)
	}
	if rel, err := filepath.Rel(absRoot, absArchive); err == nil && !strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("archive %s must not be inside the store %s: %w", archivePath, root, errors.ErrInvalidPath)
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absRoot + string(os.PathSeparator): "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read files from disk: %w", err)
	}

	summary := &Summary{}
	for _, f := range files {
		if f.Mode().IsRegular() {
			summary.Files++
			summary.Bytes += f.Size()
		}
	}

	if err := fsutil.EnsureFileDir(absArchive); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	file, err := fsutil.CreateFilePerm(absArchive, fsutil.FileModeDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, files); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	return summary, nil
}

// Restore extracts archivePath into root. Existing files with the same
// names are overwritten, other files are left alone.
func Restore(ctx context.Context, archivePath, root string) (*Summary, error) {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	summary := &Summary{}
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		target := filepath.Join(root, filepath.FromSlash(path))
		if d.IsDir() {
			return fsutil.EnsureDir(target)
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info for %s: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("unsupported entry %s (%s): %w", path, info.Mode().Type(), errors.ErrInvalidPath)
		}
		if err := writeRegularFile(fsys, path, target, info); err != nil {
			return err
		}
		summary.Files++
		summary.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// writeRegularFile copies an archive entry to target and keeps its mode and
// modification time.
func writeRegularFile(fsys fs.FS, path, target string, info fs.FileInfo) error {
	src, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	dst, err := fsutil.CreateFilePerm(target, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", target, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}

	if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", target, err)
	}
	return nil
}
