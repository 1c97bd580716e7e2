package writer

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/factory"
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef, logger *logrus.Logger) (model.Writer, error) {
		return NewTextWriter(def.RootPath, logger), nil
	})
}

// TextWriter writes a human readable report of every result batch.
type TextWriter struct {
	rootPath string
	logger   *logrus.Logger
}

func NewTextWriter(rootPath string, logger *logrus.Logger) *TextWriter {
	return &TextWriter{rootPath: rootPath, logger: logger}
}

func (w *TextWriter) Name() string {
	return "text"
}

func (w *TextWriter) Write(ctx context.Context, batch model.ResultBatch) error {
	dir := batchDir(w.rootPath, batch)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	filePath := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(filePath, []byte(Report(batch)), 0644); err != nil {
		return fmt.Errorf("failed to write report '%s': %w", filePath, err)
	}

	w.logger.Infof("Wrote report of %d recommendations to %s", len(batch.Recommendations), filePath)
	return nil
}

// Report renders one line per recommendation.
func Report(batch model.ResultBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s run %s, model group %s\n", batch.Mode, batch.RunID, batch.ModelGroup)
	for _, r := range batch.Recommendations {
		fmt.Fprintf(&b, "%s %s %q", r.Dimension.Name(), r.Class, r.Value)
		for _, f := range []struct {
			name string
			v    *float64
		}{
			{"training", r.Accuracy.Training},
			{"validation", r.Accuracy.Validation},
			{"evaluation", r.Accuracy.Evaluation},
			{"live", r.Accuracy.Live},
		} {
			if f.v != nil {
				fmt.Fprintf(&b, " %s=%s%%", f.name, strconv.FormatFloat(*f.v, 'f', -1, 64))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
