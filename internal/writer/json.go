package writer

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/factory"
	"Go2AdversaryLab/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterWriter("json", func(def config.WriterDef, logger *logrus.Logger) (model.Writer, error) {
		return NewJSONWriter(def.RootPath, logger), nil
	})
}

// summary is written next to the results of every batch.
type summary struct {
	RunID           string         `json:"run_id"`
	Mode            string         `json:"mode"`
	ModelGroup      string         `json:"model_group"`
	Recommendations int            `json:"recommendations"`
	Dimensions      map[string]int `json:"dimensions"`
	Timestamp       string         `json:"timestamp"`
}

// JSONWriter writes every result batch to <root>/<mode>/<timestamp>/.
type JSONWriter struct {
	rootPath string
	logger   *logrus.Logger
}

func NewJSONWriter(rootPath string, logger *logrus.Logger) *JSONWriter {
	return &JSONWriter{rootPath: rootPath, logger: logger}
}

func (w *JSONWriter) Name() string {
	return "json"
}

func (w *JSONWriter) Write(ctx context.Context, batch model.ResultBatch) error {
	dir := batchDir(w.rootPath, batch)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "results.json"), batch); err != nil {
		return err
	}

	s := summary{
		RunID:           batch.RunID,
		Mode:            batch.Mode,
		ModelGroup:      batch.ModelGroup,
		Recommendations: len(batch.Recommendations),
		Dimensions:      make(map[string]int),
		Timestamp:       batch.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, r := range batch.Recommendations {
		s.Dimensions[r.Dimension.Name()]++
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), s); err != nil {
		return err
	}

	w.logger.Infof("Wrote %d recommendations to %s", len(batch.Recommendations), dir)
	return nil
}

func batchDir(root string, batch model.ResultBatch) string {
	name := batch.Timestamp.Format(timestampLayout)
	if batch.RunID != "" {
		name += "_" + batch.RunID
	}
	return filepath.Join(root, batch.Mode, name)
}

func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode '%s': %w", path, err)
	}
	return nil
}
