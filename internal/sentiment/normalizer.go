package sentiment

import "github.com/tgedin/sentimentflow/internal/domain"

// Normalize maps a model-native raw label onto the canonical taxonomy
// using the descriptor's mapping. The returned confidence is the raw
// score clamped into [0, 1]; normalization never rescales scores, so
// equal raw scores stay equal across model families.
func Normalize(desc domain.ModelDescriptor, rawLabel string, rawScore float64) (domain.Label, float64, error) {
	label, ok := desc.Mapping[rawLabel]
	if !ok {
		return "", 0, &domain.UnsupportedLabelError{ModelID: desc.ID, RawLabel: rawLabel}
	}
	return label, clamp01(rawScore), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
