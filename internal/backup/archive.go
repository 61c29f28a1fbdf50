package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// writeArchive tars and gzips everything under sourceDir into outputPath
// with paths relative to sourceDir. It returns the number of regular
// files written; a partial archive is removed on failure.
func writeArchive(sourceDir, outputPath string) (int, error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}

	gzw := gzip.NewWriter(out)
	tw := tar.NewWriter(gzw)

	files := 0
	err = filepath.WalkDir(sourceDir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !entry.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, file); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}

		files++
		return nil
	})

	if err == nil {
		err = tw.Close()
	}
	if err == nil {
		err = gzw.Close()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return 0, fmt.Errorf("failed to write archive: %w", err)
	}

	return files, nil
}

// extractArchive unpacks a tar.gz archive into targetDir, rejecting
// entries whose paths would escape it.
func extractArchive(backupPath, targetDir string) (int, error) {
	in, err := os.Open(backupPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer in.Close()

	gzr, err := gzip.NewReader(in)
	if err != nil {
		return 0, fmt.Errorf("invalid backup archive: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	files := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return files, fmt.Errorf("failed to read archive entry: %w", err)
		}

		name := filepath.FromSlash(header.Name)
		if !filepath.IsLocal(name) {
			return files, fmt.Errorf("archive entry escapes target directory: %s", header.Name)
		}
		path := filepath.Join(targetDir, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, header.FileInfo().Mode().Perm()); err != nil {
				return files, fmt.Errorf("failed to create directory %s: %w", name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return files, fmt.Errorf("failed to create directory for %s: %w", name, err)
			}
			out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, header.FileInfo().Mode().Perm())
			if err != nil {
				return files, fmt.Errorf("failed to create file %s: %w", name, err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return files, fmt.Errorf("failed to extract %s: %w", name, err)
			}
			if err := out.Close(); err != nil {
				return files, fmt.Errorf("failed to finish %s: %w", name, err)
			}
			files++
		default:
			// archives written here only ever contain files and directories
		}
	}

	return files, nil
}
