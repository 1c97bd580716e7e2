package model

import "strings"

// Feature identifies what a frequency table counts.
type Feature string

const (
	FeatureLength         Feature = "length"
	FeatureTiming         Feature = "timing"
	FeatureOffsetSequence Feature = "offset_sequence"
	FeatureEntropy        Feature = "entropy"
	FeatureTLSServerName  Feature = "tls_server_name"
	FeatureTLSCommonName  Feature = "tls_common_name"
)

// suffix is the trailing component of the store key for a feature.
func (f Feature) suffix() string {
	switch f {
	case FeatureLength:
		return "Lengths"
	case FeatureTiming:
		return "TimeDifference"
	case FeatureOffsetSequence:
		return "OffsetSequence"
	case FeatureEntropy:
		return "Entropy"
	case FeatureTLSServerName:
		return "TLS:ServerName"
	case FeatureTLSCommonName:
		return "TLS:CommonName"
	}
	return string(f)
}

// Numeric reports whether values of this feature are numbers.
func (f Feature) Numeric() bool {
	switch f {
	case FeatureLength, FeatureTiming, FeatureEntropy:
		return true
	}
	return false
}

// TableKey addresses one frequency table, e.g. "Allowed:Outgoing:Lengths".
type TableKey struct {
	Class     Class
	Direction Direction
	Feature   Feature
}

func (k TableKey) String() string {
	return k.Class.Title() + ":" + k.Direction.Title() + ":" + k.Feature.suffix()
}

// Dimension is a (direction, feature) pair scored independently of the others.
type Dimension struct {
	Direction Direction `json:"direction"`
	Feature   Feature   `json:"feature"`
}

// Table returns the frequency table of this dimension for one class.
func (d Dimension) Table(class Class) TableKey {
	return TableKey{Class: class, Direction: d.Direction, Feature: d.Feature}
}

// Name returns a file and label friendly identifier such as "outgoing_length".
func (d Dimension) Name() string {
	if d.Direction == DirectionNone {
		return string(d.Feature)
	}
	return string(d.Direction) + "_" + string(d.Feature)
}

func (d Dimension) String() string {
	return d.Name()
}

// prefix is the key prefix used by result fields, e.g. "Outgoing:" or "".
func (d Dimension) prefix() string {
	if d.Direction == DirectionNone {
		return ""
	}
	return d.Direction.Title() + ":"
}

// RequiredField is the training-results field holding the allowed recommendation.
func (d Dimension) RequiredField() string {
	return d.prefix() + "Required:" + d.Feature.suffix()
}

// ForbiddenField is the training-results field holding the blocked recommendation.
func (d Dimension) ForbiddenField() string {
	return d.prefix() + "Forbidden:" + d.Feature.suffix()
}

// AccuracyField is the training-results field of one accuracy kind ("TAcc", "VAcc", "EAcc").
func (d Dimension) AccuracyField(kind string) string {
	return d.prefix() + strings.ReplaceAll(d.Feature.suffix(), ":", "") + ":" + kind
}

const (
	TrainingAccuracy   = "TAcc"
	ValidationAccuracy = "VAcc"
	EvaluationAccuracy = "EAcc"
)

// Store keys that are not frequency tables.
const (
	StatsKey           = "Packet:Stats"
	TrainingResultsKey = "Training:Results"
	TestResultsKey     = "Test:Results"
)

// QueueKey is the list of pending connection ids for a class.
func QueueKey(class Class) string {
	return class.Title() + ":Connections"
}

// PacketsKey is the field map of raw payloads for a class and direction.
func PacketsKey(class Class, direction Direction) string {
	return class.Title() + ":" + direction.Title() + ":Packets"
}

// DatesKey is the field map of capture timestamps for a class and direction.
func DatesKey(class Class, direction Direction) string {
	return class.Title() + ":" + direction.Title() + ":Dates"
}

// AnalyzedField is the stats field counting fully analyzed connections.
func AnalyzedField(class Class) string {
	return class.Title() + ":Connections:Analyzed"
}

// SeenField is the stats field counting connections handed to the lab.
func SeenField(class Class) string {
	return class.Title() + ":Connections:Seen"
}

// TestValueField is the test-results field holding the live recommendation of a class.
func TestValueField(d Dimension, class Class) string {
	return d.Table(class).String()
}

// TestAccuracyField is the test-results field holding the live accuracy of a class.
func TestAccuracyField(d Dimension, class Class) string {
	return d.Table(class).String() + ":Accuracy"
}
