package model

// Accuracy holds the percentages that justify a recommendation.
// A nil field was not reported.
type Accuracy struct {
	Training   *float64 `json:"training,omitempty"`
	Validation *float64 `json:"validation,omitempty"`
	Evaluation *float64 `json:"evaluation,omitempty"`
	Live       *float64 `json:"live,omitempty"`
}

// Recommendation is the representative value of one class for a dimension.
type Recommendation struct {
	Dimension Dimension `json:"dimension"`
	Class     Class     `json:"class"`
	Value     string    `json:"value,omitempty"`
	Score     float64   `json:"score,omitempty"`
	Accuracy  Accuracy  `json:"accuracy"`
}

// Recommender is the persisted per-class representative of a dimension.
type Recommender struct {
	Dimension Dimension `json:"dimension"`
	Allowed   Entry     `json:"allowed"`
	Blocked   Entry     `json:"blocked"`
}

// For returns the representative entry of a class.
func (r Recommender) For(class Class) Entry {
	if class == Blocked {
		return r.Blocked
	}
	return r.Allowed
}
