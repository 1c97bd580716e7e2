package classifier

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore persists trained classifiers and recommenders per model group.
type ArtifactStore interface {
	SaveClassifier(ctx context.Context, group string, dim model.Dimension, m *Model) error
	LoadClassifier(ctx context.Context, group string, dim model.Dimension) (*Model, error)
	SaveRecommender(ctx context.Context, group string, r model.Recommender) error
	LoadRecommender(ctx context.Context, group string, dim model.Dimension) (*model.Recommender, error)
}

// FileArtifacts keeps artifacts under <root>/<group>/. Classifiers are gob
// files, optionally zstd compressed; recommenders are JSON.
type FileArtifacts struct {
	rootPath string
	compress bool
	cache    *lru.Cache[string, *Model]
}

// NewFileArtifacts creates a file artifact store with an LRU of loaded models.
func NewFileArtifacts(rootPath string, compress bool, cacheSize int) (*FileArtifacts, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, *Model](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}
	return &FileArtifacts{rootPath: rootPath, compress: compress, cache: cache}, nil
}

func (a *FileArtifacts) classifierPath(group string, dim model.Dimension, compressed bool) string {
	name := dim.Name() + ".model"
	if compressed {
		name += ".zst"
	}
	return filepath.Join(a.rootPath, group, name)
}

func (a *FileArtifacts) recommenderPath(group string, dim model.Dimension) string {
	return filepath.Join(a.rootPath, group, dim.Name()+".recommender.json")
}

func (a *FileArtifacts) SaveClassifier(ctx context.Context, group string, dim model.Dimension, m *Model) error {
	path := a.classifierPath(group, dim, a.compress)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file '%s': %w", path, err)
	}
	defer file.Close()

	if err := writeClassifier(file, m, a.compress); err != nil {
		return fmt.Errorf("failed to write classifier %s: %w", dim, err)
	}
	// Drop the stale copy of a model saved under the other encoding.
	os.Remove(a.classifierPath(group, dim, !a.compress))

	a.cache.Add(path, m)
	return nil
}

// writeClassifier gob-encodes m into w, through zstd when compress is set.
// The zstd encoder is closed on every path.
func writeClassifier(w io.Writer, m *Model, compress bool) error {
	if !compress {
		return gob.NewEncoder(w).Encode(m)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := gob.NewEncoder(zw).Encode(m); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// LoadClassifier returns the saved model, trying both encodings.
func (a *FileArtifacts) LoadClassifier(ctx context.Context, group string, dim model.Dimension) (*Model, error) {
	for _, compressed := range []bool{a.compress, !a.compress} {
		path := a.classifierPath(group, dim, compressed)
		if m, ok := a.cache.Get(path); ok {
			return m, nil
		}
		m, err := readClassifier(path, compressed)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		a.cache.Add(path, m)
		return m, nil
	}
	return nil, fmt.Errorf("classifier %s/%s: %w", group, dim, ErrArtifactNotFound)
}

func readClassifier(path string, compressed bool) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if compressed {
		zr, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var m Model
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode classifier '%s': %w", path, err)
	}
	return &m, nil
}

func (a *FileArtifacts) SaveRecommender(ctx context.Context, group string, r model.Recommender) error {
	path := a.recommenderPath(group, r.Dimension)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal recommender %s: %w", r.Dimension, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write recommender '%s': %w", path, err)
	}
	return nil
}

func (a *FileArtifacts) LoadRecommender(ctx context.Context, group string, dim model.Dimension) (*model.Recommender, error) {
	path := a.recommenderPath(group, dim)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("recommender %s/%s: %w", group, dim, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recommender '%s': %w", path, err)
	}
	var r model.Recommender
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommender '%s': %w", path, err)
	}
	return &r, nil
}
