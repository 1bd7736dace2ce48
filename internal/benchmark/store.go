package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Scales lists the known scale names in report order.
var Scales = []string{"small", "medium", "large"}

// Store defines the interface for persisting combined documents.
type Store interface {
	Save(doc CombinedDocument) (string, error)
	Load(scale string) (*CombinedDocument, error)
	LoadAll() ([]CombinedDocument, error)
}

// FileStore implements Store using one JSON file per scale in a results
// directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// CombinedPath returns the path of the combined document for scale.
func (s *FileStore) CombinedPath(scale string) string {
	return filepath.Join(s.dir, fmt.Sprintf("combined_%s.json", scale))
}

func (s *FileStore) Save(doc CombinedDocument) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal combined results: %w", err)
	}
	path := s.CombinedPath(doc.Scale)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the combined document for scale. A missing file yields
// (nil, nil).
func (s *FileStore) Load(scale string) (*CombinedDocument, error) {
	return LoadCombined(s.CombinedPath(scale))
}

// LoadAll loads every scale present, in Scales order.
func (s *FileStore) LoadAll() ([]CombinedDocument, error) {
	var docs []CombinedDocument
	for _, scale := range Scales {
		doc, err := s.Load(scale)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// LoadCombined reads a combined document from an explicit path.
func LoadCombined(path string) (*CombinedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc CombinedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return &doc, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ArtifactName turns a library identifier into a file-name stem that cannot
// collide with path separators or hidden-file prefixes.
func ArtifactName(name string) string {
	stem := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "_")
	if stem == "" {
		return "library"
	}
	return stem
}
