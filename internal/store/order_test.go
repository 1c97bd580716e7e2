package store

import (
	"Go2AdversaryLab/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	assert.Negative(t, CompareValues("90", "500"))
	assert.Positive(t, CompareValues("1500", "500"))
	assert.Zero(t, CompareValues("2", "2"))
	assert.Negative(t, CompareValues("2.5", "10"))
	assert.Negative(t, CompareValues("-3", "1"))
	assert.Negative(t, CompareValues("900", "a.example"), "numbers sort before text")
	assert.Negative(t, CompareValues("a.example", "b.example"))
}

func TestCompareValues_NonFiniteIsText(t *testing.T) {
	assert.Negative(t, CompareValues("1e5", "inf"))
	assert.Negative(t, CompareValues("900", "nan"))
	assert.Negative(t, CompareValues("example.com", "inf"))
	assert.Negative(t, CompareValues("inf", "nan"))
}

func TestSortEntries_TextFeatureIsByteWise(t *testing.T) {
	entries := []model.Entry{{Value: "example.com"}, {Value: "inf"}, {Value: "nan"}, {Value: "1e5"}}
	SortEntries(model.FeatureTLSServerName, entries)

	var values []string
	for _, e := range entries {
		values = append(values, e.Value)
	}
	assert.Equal(t, []string{"1e5", "example.com", "inf", "nan"}, values)

	lengths := []model.Entry{{Value: "1500"}, {Value: "90"}, {Value: "500"}}
	SortEntries(model.FeatureLength, lengths)
	assert.Equal(t, "90", lengths[0].Value)
	assert.Equal(t, "1500", lengths[2].Value)
}
