package notify

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeEvent serializes an event as a protobuf Struct.
func EncodeEvent(event model.Event) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]interface{}{
		"kind":   string(event.Kind),
		"detail": event.Detail,
		"time":   event.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

// DecodeEvent is the inverse of EncodeEvent.
func DecodeEvent(data []byte) (model.Event, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return model.Event{}, fmt.Errorf("error unmarshalling protobuf: %w", err)
	}
	fields := msg.GetFields()
	event := model.Event{
		Kind:   model.EventKind(fields["kind"].GetStringValue()),
		Detail: fields["detail"].GetStringValue(),
	}
	if event.Kind == "" {
		return model.Event{}, fmt.Errorf("event has no kind")
	}
	if raw := fields["time"].GetStringValue(); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return model.Event{}, fmt.Errorf("invalid event time: %w", err)
		}
		event.Time = t
	}
	return event, nil
}

// NATSNotifier publishes events to a NATS subject. Publish errors are logged.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *logrus.Logger
}

// NewNATSNotifier connects to the configured NATS server.
func NewNATSNotifier(cfg config.NATSConfig, logger *logrus.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	logger.Infof("Connected to NATS server at %s", cfg.URL)
	return &NATSNotifier{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

func (n *NATSNotifier) Post(event model.Event) {
	data, err := EncodeEvent(event)
	if err != nil {
		n.logger.Errorf("Failed to encode event: %v", err)
		return
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		n.logger.Warnf("Failed to publish event to NATS: %v", err)
	}
}

// Close drains and closes the NATS connection.
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Drain()
		n.logger.Info("NATS connection drained and closed.")
	}
}

// EventHandler processes a received event.
type EventHandler func(event model.Event)

// Subscriber receives lab events from NATS.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	logger  *logrus.Logger
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig, logger *logrus.Logger) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	logger.Infof("Connected to NATS server at %s", cfg.URL)
	return &Subscriber{nc: nc, subject: cfg.Subject, logger: logger}, nil
}

// Start subscribes to the subject and hands every decodable event to handler.
func (s *Subscriber) Start(handler EventHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		event, err := DecodeEvent(msg.Data)
		if err != nil {
			s.logger.Warnf("Dropping event: %v", err)
			return
		}
		handler(event)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Infof("Subscribed to '%s'. Waiting for events...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		s.logger.Info("NATS connection closed.")
	}
}
