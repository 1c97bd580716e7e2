package protocol

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
)

// Known is a protocol variant the lab can fingerprint.
type Known string

const (
	KnownTLS12 Known = "tls12"
)

// Detect inspects the first outgoing payload of a connection.
func Detect(outgoing []byte) (Known, bool) {
	ch, err := ParseClientHello(outgoing)
	if err != nil {
		return "", false
	}
	if ch.IsTLS12() {
		return KnownTLS12, true
	}
	return "", false
}

// DetectConnection loads the outgoing payload of conn and runs Detect.
func DetectConnection(ctx context.Context, store model.Store, conn model.ObservedConnection) (Known, bool, error) {
	out, ok, err := store.GetField(ctx, model.PacketsKey(conn.Class, model.Outgoing), conn.ID)
	if err != nil {
		return "", false, fmt.Errorf("failed to read outgoing packet of %s: %w", conn.ID, err)
	}
	if !ok {
		return "", false, nil
	}
	kind, ok := Detect(out)
	return kind, ok, nil
}

// Process counts the identifying fields of a detected protocol: the ClientHello
// server name and the server certificate common name. Fields that cannot be
// found are skipped.
func Process(ctx context.Context, store model.Store, conn model.ObservedConnection, kind Known) error {
	if kind != KnownTLS12 {
		return fmt.Errorf("unsupported protocol %q", kind)
	}

	out, ok, err := store.GetField(ctx, model.PacketsKey(conn.Class, model.Outgoing), conn.ID)
	if err != nil {
		return fmt.Errorf("failed to read outgoing packet of %s: %w", conn.ID, err)
	}
	if ok {
		if ch, err := ParseClientHello(out); err == nil && ch.ServerName != "" {
			if _, err := store.IncrementScore(ctx, conn.Table(model.Outgoing, model.FeatureTLSServerName), ch.ServerName, 1); err != nil {
				return fmt.Errorf("failed to count server name of %s: %w", conn.ID, err)
			}
		}
	}

	in, ok, err := store.GetField(ctx, model.PacketsKey(conn.Class, model.Incoming), conn.ID)
	if err != nil {
		return fmt.Errorf("failed to read incoming packet of %s: %w", conn.ID, err)
	}
	if ok {
		if cn, err := ParseCertificateCommonName(in); err == nil && cn != "" {
			if _, err := store.IncrementScore(ctx, conn.Table(model.Incoming, model.FeatureTLSCommonName), cn, 1); err != nil {
				return fmt.Errorf("failed to count common name of %s: %w", conn.ID, err)
			}
		}
	}
	return nil
}
