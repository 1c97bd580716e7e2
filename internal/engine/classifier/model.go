package classifier

import (
	"Go2AdversaryLab/internal/engine/dataset"
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/store"
	"slices"
	"strconv"
)

// Model is a trained value → class lookup for one dimension.
// Values are kept in store order; Numbers mirrors Values when Numeric is set.
type Model struct {
	Numeric bool
	Values  []string
	Numbers []float64
	Labels  []model.Class
	Default model.Class
}

// fit builds a model that votes the majority label of every known value.
// Ties go to the allowed class.
func fit(rows []dataset.Row) *Model {
	votes := make(map[string]map[model.Class]int)
	total := make(map[model.Class]int)
	numeric := true
	for _, r := range rows {
		if votes[r.Value] == nil {
			votes[r.Value] = make(map[model.Class]int)
			if _, err := strconv.ParseFloat(r.Value, 64); err != nil {
				numeric = false
			}
		}
		votes[r.Value][r.Label]++
		total[r.Label]++
	}

	m := &Model{Numeric: numeric, Default: majority(total)}
	for v := range votes {
		m.Values = append(m.Values, v)
	}
	slices.SortFunc(m.Values, store.CompareValues)
	m.Labels = make([]model.Class, len(m.Values))
	for i, v := range m.Values {
		m.Labels[i] = majority(votes[v])
	}
	if numeric {
		m.Numbers = make([]float64, len(m.Values))
		for i, v := range m.Values {
			m.Numbers[i], _ = strconv.ParseFloat(v, 64)
		}
	}
	return m
}

func majority(counts map[model.Class]int) model.Class {
	if counts[model.Blocked] > counts[model.Allowed] {
		return model.Blocked
	}
	return model.Allowed
}

// Predict returns a class for each value. Unknown numbers take the label of
// the nearest known number (the lower one on a tie); other unknown values
// take the overall majority class.
func (m *Model) Predict(values []string) []model.Class {
	out := make([]model.Class, len(values))
	for i, v := range values {
		out[i] = m.predict(v)
	}
	return out
}

func (m *Model) predict(v string) model.Class {
	if len(m.Values) == 0 {
		return m.Default
	}
	if !m.Numeric {
		if i, ok := slices.BinarySearchFunc(m.Values, v, store.CompareValues); ok {
			return m.Labels[i]
		}
		return m.Default
	}

	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return m.Default
	}
	i, found := slices.BinarySearch(m.Numbers, x)
	switch {
	case found:
		return m.Labels[i]
	case i == 0:
		return m.Labels[0]
	case i == len(m.Numbers):
		return m.Labels[len(m.Numbers)-1]
	}
	if x-m.Numbers[i-1] <= m.Numbers[i]-x {
		return m.Labels[i-1]
	}
	return m.Labels[i]
}

// errorRate is the fraction of rows the model labels wrongly.
func (m *Model) errorRate(rows []dataset.Row) float64 {
	predicted := m.Predict(dataset.Values(rows))
	wrong := 0
	for i, r := range rows {
		if predicted[i] != r.Label {
			wrong++
		}
	}
	return float64(wrong) / float64(len(rows))
}
