package feature

import (
	"Go2AdversaryLab/internal/model"
	"fmt"
)

// ErrorKind classifies why an extractor could not count a connection.
type ErrorKind string

const (
	NoOutPacket      ErrorKind = "no_out_packet"
	NoInPacket       ErrorKind = "no_in_packet"
	IncrementFailure ErrorKind = "increment_failure"
)

// Error is returned by every extractor. Value carries the key that failed to
// increment and is empty for the missing-packet kinds.
type Error struct {
	Kind         ErrorKind
	Feature      model.Feature
	ConnectionID string
	Value        string
	Err          error
}

func (e *Error) Error() string {
	switch e.Kind {
	case NoOutPacket:
		return fmt.Sprintf("%s: no outgoing packet for connection %s", e.Feature, e.ConnectionID)
	case NoInPacket:
		return fmt.Sprintf("%s: no incoming packet for connection %s", e.Feature, e.ConnectionID)
	}
	return fmt.Sprintf("%s: failed to increment %q for connection %s: %v", e.Feature, e.Value, e.ConnectionID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func missing(kind ErrorKind, f model.Feature, conn model.ObservedConnection) *Error {
	return &Error{Kind: kind, Feature: f, ConnectionID: conn.ID}
}

func incrementFailed(f model.Feature, conn model.ObservedConnection, value string, err error) *Error {
	return &Error{Kind: IncrementFailure, Feature: f, ConnectionID: conn.ID, Value: value, Err: err}
}
