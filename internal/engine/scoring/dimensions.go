package scoring

import (
	"Go2AdversaryLab/internal/model"
	"math"
)

// Dimensions lists the dimensions scored for a processing configuration, in
// scoring order.
func Dimensions(cfg model.ProcessingConfig) []model.Dimension {
	dims := []model.Dimension{
		{Direction: model.Outgoing, Feature: model.FeatureLength},
		{Direction: model.Incoming, Feature: model.FeatureLength},
	}
	if cfg.EnableSequenceAnalysis {
		dims = append(dims,
			model.Dimension{Direction: model.Outgoing, Feature: model.FeatureOffsetSequence},
			model.Dimension{Direction: model.Incoming, Feature: model.FeatureOffsetSequence},
		)
	}
	dims = append(dims,
		model.Dimension{Direction: model.Outgoing, Feature: model.FeatureEntropy},
		model.Dimension{Direction: model.Incoming, Feature: model.FeatureEntropy},
		model.Dimension{Direction: model.DirectionNone, Feature: model.FeatureTiming},
	)
	if cfg.EnableTLSAnalysis {
		dims = append(dims,
			model.Dimension{Direction: model.Outgoing, Feature: model.FeatureTLSServerName},
			model.Dimension{Direction: model.Incoming, Feature: model.FeatureTLSCommonName},
		)
	}
	return dims
}

// Percent rounds a ratio to three decimals and scales it to [0,100].
func Percent(ratio float64) float64 {
	ratio = min(max(ratio, 0), 1)
	return math.Round(ratio*1000) / 10
}
