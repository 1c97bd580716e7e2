package model

import (
	"net"
	"time"
)

// Class is the label an enforcement point assigned to a connection.
type Class string

const (
	Allowed Class = "allowed"
	Blocked Class = "blocked"
)

// Classes lists the labels in drain order.
var Classes = []Class{Allowed, Blocked}

// Title returns the capitalised form used in store keys.
func (c Class) Title() string {
	switch c {
	case Allowed:
		return "Allowed"
	case Blocked:
		return "Blocked"
	}
	return string(c)
}

// Direction of a packet relative to the observed client.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
	// DirectionNone marks features computed across both halves of a connection.
	DirectionNone Direction = ""
)

// Directions lists both packet directions, outgoing first.
var Directions = []Direction{Outgoing, Incoming}

// Title returns the capitalised form used in store keys.
func (d Direction) Title() string {
	switch d {
	case Incoming:
		return "Incoming"
	case Outgoing:
		return "Outgoing"
	}
	return "Connections"
}

// ObservedConnection is a connection id together with its class.
type ObservedConnection struct {
	ID    string
	Class Class
}

// Table returns the frequency table key for a feature of this connection.
func (c ObservedConnection) Table(direction Direction, feature Feature) TableKey {
	return TableKey{Class: c.Class, Direction: direction, Feature: feature}
}

// PacketRecord is the raw payload captured for one side of a connection.
type PacketRecord struct {
	ConnectionID string
	Direction    Direction
	Payload      []byte
	Timestamp    time.Time
}

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// PacketInfo holds the metadata extracted from a single captured packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int
	Payload   []byte
	SYN       bool
	ACK       bool
}

// Entry is one value of a frequency table and its accumulated score.
type Entry struct {
	Value string  `json:"value"`
	Score float64 `json:"score"`
}

// ProcessingConfig is passed into every top-level analysis call.
type ProcessingConfig struct {
	EnableSequenceAnalysis bool   `yaml:"enable_sequence_analysis" json:"enable_sequence_analysis"`
	EnableTLSAnalysis      bool   `yaml:"enable_tls_analysis" json:"enable_tls_analysis"`
	DestructiveDrain       bool   `yaml:"destructive_drain" json:"destructive_drain"`
	TrainingMode           bool   `yaml:"training_mode" json:"training_mode"`
	ModelGroupName         string `yaml:"model_group_name" json:"model_group_name"`
}

// Mode returns "training" or "test" depending on TrainingMode.
func (c ProcessingConfig) Mode() string {
	if c.TrainingMode {
		return ModeTraining
	}
	return ModeTest
}

const (
	ModeTraining = "training"
	ModeTest     = "test"
)
