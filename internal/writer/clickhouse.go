package writer

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/factory"
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS lab_recommendations (
    Timestamp   DateTime,
    RunID       String,
    Mode        LowCardinality(String),
    ModelGroup  String,
    Dimension   LowCardinality(String),
    Class       LowCardinality(String),
    Value       String,
    Score       Float64,
    Training    Nullable(Float64),
    Validation  Nullable(Float64),
    Evaluation  Nullable(Float64),
    Live        Nullable(Float64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (ModelGroup, Dimension, Timestamp);
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, logger *logrus.Logger) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, logger)
	})
}

// ClickHouseWriter appends every recommendation to the lab_recommendations table.
type ClickHouseWriter struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// NewClickHouseWriter connects to ClickHouse and ensures the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, logger *logrus.Logger) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	return newClickHouseWriter(context.Background(), conn, logger)
}

// newClickHouseWriter creates the results table on conn. conn is closed when
// that fails.
func newClickHouseWriter(ctx context.Context, conn driver.Conn, logger *logrus.Logger) (*ClickHouseWriter, error) {
	if err := conn.Exec(ctx, createTableStatement); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	logger.Info("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn, logger: logger}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

func (w *ClickHouseWriter) Write(ctx context.Context, batch model.ResultBatch) error {
	rows := Rows(batch)
	if len(rows) == 0 {
		return nil // Nothing to write
	}

	chBatch, err := w.conn.PrepareBatch(ctx, "INSERT INTO lab_recommendations")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range rows {
		if err := chBatch.Append(row...); err != nil {
			return fmt.Errorf("failed to append recommendation to batch: %w", err)
		}
	}
	if err := chBatch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.logger.Infof("Wrote %d recommendations to ClickHouse for run '%s'", len(rows), batch.RunID)
	return nil
}

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Rows converts a batch into lab_recommendations rows in column order.
func Rows(batch model.ResultBatch) [][]interface{} {
	ts := batch.Timestamp.UTC().Truncate(time.Second)
	rows := make([][]interface{}, 0, len(batch.Recommendations))
	for _, r := range batch.Recommendations {
		rows = append(rows, []interface{}{
			ts,
			batch.RunID,
			batch.Mode,
			batch.ModelGroup,
			r.Dimension.Name(),
			string(r.Class),
			r.Value,
			r.Score,
			r.Accuracy.Training,
			r.Accuracy.Validation,
			r.Accuracy.Evaluation,
			r.Accuracy.Live,
		})
	}
	return rows
}
