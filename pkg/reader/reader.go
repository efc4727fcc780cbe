package reader

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kheld/ragdex/internal/models"
)

// DirectoryReader loads every supported file under an input directory into a
// Document. One file becomes one document; parsing is chosen by extension.
type DirectoryReader struct {
	config ReaderConfig
}

type ReaderConfig struct {
	InputDir      string
	Recursive     bool
	RequiredExts  []string
	ExcludeHidden bool
	OnProgress    func(path string)
}

func NewWithConfig(config ReaderConfig) (*DirectoryReader, error) {
	if config.InputDir == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	if len(config.RequiredExts) == 0 {
		config.RequiredExts = []string{".txt", ".md", ".html", ".htm", ".pdf"}
	}

	info, err := os.Stat(config.InputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot open input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", config.InputDir)
	}

	return &DirectoryReader{config: config}, nil
}

func New(inputDir string) (*DirectoryReader, error) {
	return NewWithConfig(ReaderConfig{
		InputDir:  inputDir,
		Recursive: true,
	})
}

// LoadData walks the input directory and parses each supported file. Files
// that fail to parse are logged and skipped; an empty result is an error.
func (r *DirectoryReader) LoadData(ctx context.Context) ([]models.Document, error) {
	var documents []models.Document

	err := filepath.WalkDir(r.config.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if r.config.ExcludeHidden && strings.HasPrefix(name, ".") && path != r.config.InputDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !r.config.Recursive && path != r.config.InputDir {
				return filepath.SkipDir
			}
			return nil
		}

		if !r.shouldProcessFile(path) {
			return nil
		}

		if r.config.OnProgress != nil {
			r.config.OnProgress(path)
		}

		doc, err := r.loadFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			return nil
		}
		documents = append(documents, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(documents) == 0 {
		return nil, fmt.Errorf("no supported documents found in %s", r.config.InputDir)
	}

	return documents, nil
}

func (r *DirectoryReader) shouldProcessFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range r.config.RequiredExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (r *DirectoryReader) loadFile(path string) (models.Document, error) {
	var (
		content string
		title   string
		err     error
	)

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		content, title, err = extractPDF(path)
	case ".html", ".htm":
		content, title, err = extractHTML(path)
	default:
		content, err = extractPlainText(path)
	}
	if err != nil {
		return models.Document{}, err
	}

	if strings.TrimSpace(content) == "" {
		return models.Document{}, fmt.Errorf("no text content")
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		ID:      uuid.NewString(),
		Source:  path,
		Title:   title,
		Content: content,
		Metadata: map[string]interface{}{
			"file_path": path,
			"file_name": filepath.Base(path),
			"file_size": info.Size(),
			"file_type": ext,
			"mod_time":  info.ModTime(),
		},
	}, nil
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
