package feature

import (
	"encoding/hex"
	"math"
	"strconv"
)

// Entropy computes the Shannon entropy of data in bits per byte.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	entropy := 0.0
	length := float64(len(data))
	for _, count := range freq {
		if count > 0 {
			p := float64(count) / length
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// FormatNumber renders a number in the canonical decimal text used as a table value.
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SequenceDescriptor returns "<offset>:<hex>" for the bytes in [offset, offset+length).
func SequenceDescriptor(payload []byte, offset, length int) string {
	start := min(offset, len(payload))
	end := min(offset+length, len(payload))
	return strconv.Itoa(offset) + ":" + hex.EncodeToString(payload[start:end])
}
