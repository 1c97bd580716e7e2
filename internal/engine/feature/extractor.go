package feature

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"strconv"
)

// Extractor reads the raw packets of one connection and counts a single
// feature into the frequency store.
type Extractor interface {
	Name() string
	Feature() model.Feature
	// Extract returns nil or a *Error.
	Extract(ctx context.Context, conn model.ObservedConnection) error
}

// keyFunc turns one payload into a frequency table value.
type keyFunc func(payload []byte) string

// payloadExtractor counts a per-direction value derived from each payload.
// The outgoing side is counted before the incoming packet is looked up.
type payloadExtractor struct {
	store   model.Store
	feature model.Feature
	key     keyFunc
}

func (e *payloadExtractor) Name() string {
	return string(e.feature)
}

func (e *payloadExtractor) Feature() model.Feature {
	return e.feature
}

func (e *payloadExtractor) Extract(ctx context.Context, conn model.ObservedConnection) error {
	out, ok, err := e.store.GetField(ctx, model.PacketsKey(conn.Class, model.Outgoing), conn.ID)
	if err != nil {
		return fmt.Errorf("%s: failed to read outgoing packet of %s: %w", e.feature, conn.ID, err)
	}
	if !ok {
		return missing(NoOutPacket, e.feature, conn)
	}
	outKey := e.key(out)
	if _, err := e.store.IncrementScore(ctx, conn.Table(model.Outgoing, e.feature), outKey, 1); err != nil {
		return incrementFailed(e.feature, conn, outKey, err)
	}

	in, ok, err := e.store.GetField(ctx, model.PacketsKey(conn.Class, model.Incoming), conn.ID)
	if err != nil {
		return fmt.Errorf("%s: failed to read incoming packet of %s: %w", e.feature, conn.ID, err)
	}
	if !ok {
		return missing(NoInPacket, e.feature, conn)
	}
	inKey := e.key(in)
	if _, err := e.store.IncrementScore(ctx, conn.Table(model.Incoming, e.feature), inKey, 1); err != nil {
		return incrementFailed(e.feature, conn, inKey, err)
	}
	return nil
}

// NewLengthExtractor counts payload byte counts.
func NewLengthExtractor(store model.Store) Extractor {
	return &payloadExtractor{
		store:   store,
		feature: model.FeatureLength,
		key: func(payload []byte) string {
			return strconv.Itoa(len(payload))
		},
	}
}

// NewEntropyExtractor counts payload entropy rounded to precision decimals.
func NewEntropyExtractor(store model.Store, precision int) Extractor {
	return &payloadExtractor{
		store:   store,
		feature: model.FeatureEntropy,
		key: func(payload []byte) string {
			return FormatNumber(Round(Entropy(payload), precision))
		},
	}
}

// NewSequenceExtractor counts "<offset>:<hex>" descriptors of length bytes
// read at offset. The window is truncated to the payload.
func NewSequenceExtractor(store model.Store, offset, length int) Extractor {
	return &payloadExtractor{
		store:   store,
		feature: model.FeatureOffsetSequence,
		key: func(payload []byte) string {
			return SequenceDescriptor(payload, offset, length)
		},
	}
}
