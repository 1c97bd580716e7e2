package feature

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"math"
	"strconv"
)

// timingExtractor counts the delay between the outgoing and incoming packet
// of a connection, floored to a bucket in milliseconds.
type timingExtractor struct {
	store    model.Store
	bucketMs float64
}

// NewTimingExtractor creates the timing extractor. bucketMs <= 0 means 1 ms.
func NewTimingExtractor(store model.Store, bucketMs float64) Extractor {
	if bucketMs <= 0 {
		bucketMs = 1
	}
	return &timingExtractor{store: store, bucketMs: bucketMs}
}

func (e *timingExtractor) Name() string {
	return string(model.FeatureTiming)
}

func (e *timingExtractor) Feature() model.Feature {
	return model.FeatureTiming
}

func (e *timingExtractor) Extract(ctx context.Context, conn model.ObservedConnection) error {
	out, ok, err := e.timestamp(ctx, conn, model.Outgoing)
	if err != nil {
		return err
	}
	if !ok {
		return missing(NoOutPacket, model.FeatureTiming, conn)
	}
	in, ok, err := e.timestamp(ctx, conn, model.Incoming)
	if err != nil {
		return err
	}
	if !ok {
		return missing(NoInPacket, model.FeatureTiming, conn)
	}

	// Dates carry microsecond resolution; round before bucketing so float noise
	// cannot push a delta into the previous bucket.
	deltaMs := math.Round((in-out)*1e6) / 1e3
	key := FormatNumber(Bucket(deltaMs, e.bucketMs))
	if _, err := e.store.IncrementScore(ctx, conn.Table(model.DirectionNone, model.FeatureTiming), key, 1); err != nil {
		return incrementFailed(model.FeatureTiming, conn, key, err)
	}
	return nil
}

// timestamp reads a capture time stored as decimal Unix seconds.
func (e *timingExtractor) timestamp(ctx context.Context, conn model.ObservedConnection, dir model.Direction) (float64, bool, error) {
	raw, ok, err := e.store.GetField(ctx, model.DatesKey(conn.Class, dir), conn.ID)
	if err != nil {
		return 0, false, fmt.Errorf("timing: failed to read %s date of %s: %w", dir, conn.ID, err)
	}
	if !ok {
		return 0, false, nil
	}
	ts, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		// An unreadable timestamp counts as a missing one.
		return 0, false, nil
	}
	return ts, true, nil
}

// Bucket floors deltaMs to a multiple of bucketMs.
func Bucket(deltaMs, bucketMs float64) float64 {
	if bucketMs <= 0 {
		bucketMs = 1
	}
	return math.Floor(deltaMs/bucketMs+1e-9) * bucketMs
}

// FormatTimestamp renders a capture time the way the timing extractor reads it.
func FormatTimestamp(unixNano int64) string {
	return strconv.FormatFloat(float64(unixNano)/1e9, 'f', 6, 64)
}
