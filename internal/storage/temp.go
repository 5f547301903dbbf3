package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// TempStore keeps per-request upload files on local disk.
type TempStore struct {
	dir string
}

func NewTempStore(dir string) (*TempStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &TempStore{dir: dir}, nil
}

func (s *TempStore) Dir() string {
	return s.dir
}

// Save copies an uploaded file to a randomly named file and returns its path.
func (s *TempStore) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	return s.SaveReader(src, filepath.Ext(fh.Filename))
}

func (s *TempStore) SaveReader(r io.Reader, ext string) (string, error) {
	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = ".bin"
	}

	f, err := os.CreateTemp(s.dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	return f.Name(), nil
}

func (s *TempStore) Read(path string) ([]byte, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp file: %w", err)
	}
	return data, nil
}

// Remove deletes a temp file. A file that is already gone is not an error.
func (s *TempStore) Remove(path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}

func (s *TempStore) contains(path string) error {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path %s is outside the upload directory", path)
	}
	return nil
}
