package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// ZipFiles bundles files into zipPath; map keys are archive entry names.
func ZipFiles(zipPath string, files map[string]string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return err
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	defer zw.Close()
	for name, path := range files {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(w, f); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

func EnsureDir(dir string) error { return os.MkdirAll(dir, 0o755) }

// WriteFile is a thin wrapper so callers stay inside this package for all
// artifact output.
func WriteFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, data, 0o644)
}
