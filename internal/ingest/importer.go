package ingest

import (
	"Go2AdversaryLab/internal/engine/feature"
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Summary counts what one import stored.
type Summary struct {
	Packets     int `json:"packets"`
	Connections int `json:"connections"`
	Stored      int `json:"stored"`
}

// Importer turns captured TCP packets into queued connections of one class.
type Importer struct {
	store    model.Store
	notifier model.Notifier
	logger   *logrus.Logger
	// ServerPort keeps only connections to this port when non-zero.
	ServerPort uint16
}

func NewImporter(store model.Store, notifier model.Notifier, logger *logrus.Logger) *Importer {
	return &Importer{store: store, notifier: notifier, logger: logger}
}

type endpoint struct {
	ip   string
	port uint16
}

func (e endpoint) String() string {
	return net.JoinHostPort(e.ip, strconv.Itoa(int(e.port)))
}

type flowKey struct {
	a, b endpoint
}

// newFlowKey orders the endpoints so both directions share a key.
func newFlowKey(src, dst endpoint) flowKey {
	if src.String() < dst.String() {
		return flowKey{a: src, b: dst}
	}
	return flowKey{a: dst, b: src}
}

type side struct {
	payload []byte
	at      int64
	seen    bool
}

type connection struct {
	id       string
	client   endpoint
	server   endpoint
	outgoing side
	incoming side
}

// Import groups the packets into TCP connections and stores the first
// outgoing and first incoming payload of each. The client of a connection is
// the sender of its SYN, or of its first packet when the handshake was not
// captured. Connections without any payload are dropped. Stored ids are
// appended to the class queue in order of first appearance.
func (im *Importer) Import(ctx context.Context, packets <-chan *model.PacketInfo, class model.Class) (Summary, error) {
	var summary Summary
	flows := make(map[flowKey]*connection)
	var order []*connection

	for info := range packets {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Packets++
		if info.FiveTuple.Protocol != 6 {
			continue
		}

		src := endpoint{ip: info.FiveTuple.SrcIP.String(), port: info.FiveTuple.SrcPort}
		dst := endpoint{ip: info.FiveTuple.DstIP.String(), port: info.FiveTuple.DstPort}
		key := newFlowKey(src, dst)

		conn, ok := flows[key]
		if !ok {
			conn = &connection{client: src, server: dst}
			if info.SYN && info.ACK {
				conn.client, conn.server = dst, src
			}
			flows[key] = conn
			order = append(order, conn)
		}

		if len(info.Payload) == 0 {
			continue
		}
		target := &conn.incoming
		if src == conn.client {
			target = &conn.outgoing
		}
		if !target.seen {
			target.payload = append([]byte(nil), info.Payload...)
			target.at = info.Timestamp.UnixNano()
			target.seen = true
		}
	}
	summary.Connections = len(order)

	var ids []string
	for _, conn := range order {
		if !conn.outgoing.seen && !conn.incoming.seen {
			continue
		}
		if im.ServerPort != 0 && conn.server.port != im.ServerPort {
			continue
		}
		conn.id = uuid.NewString()
		if err := im.save(ctx, class, conn); err != nil {
			return summary, err
		}
		ids = append(ids, conn.id)
	}

	if len(ids) == 0 {
		im.logger.Infof("No %s connections with payload found.", class)
		return summary, nil
	}
	if err := im.store.PushBack(ctx, model.QueueKey(class), ids...); err != nil {
		return summary, fmt.Errorf("failed to queue connections: %w", err)
	}
	if _, err := im.store.IncrField(ctx, model.StatsKey, model.SeenField(class), float64(len(ids))); err != nil {
		return summary, fmt.Errorf("failed to update seen counter: %w", err)
	}
	summary.Stored = len(ids)

	if im.notifier != nil {
		im.notifier.Post(model.NewEvent(model.StatsUpdated, ""))
	}
	im.logger.WithFields(logrus.Fields{
		"class":       class,
		"packets":     summary.Packets,
		"connections": summary.Connections,
		"stored":      summary.Stored,
	}).Info("Capture imported.")
	return summary, nil
}

func (im *Importer) save(ctx context.Context, class model.Class, conn *connection) error {
	for _, dir := range model.Directions {
		part := conn.outgoing
		if dir == model.Incoming {
			part = conn.incoming
		}
		if !part.seen {
			continue
		}
		if err := im.store.SetField(ctx, model.PacketsKey(class, dir), conn.id, part.payload); err != nil {
			return fmt.Errorf("failed to store %s packet of %s: %w", dir, conn.id, err)
		}
		date := feature.FormatTimestamp(part.at)
		if err := im.store.SetField(ctx, model.DatesKey(class, dir), conn.id, []byte(date)); err != nil {
			return fmt.Errorf("failed to store %s date of %s: %w", dir, conn.id, err)
		}
	}
	im.logger.WithFields(logrus.Fields{"connection": conn.id, "client": conn.client, "server": conn.server}).Debug("Connection stored.")
	return nil
}
