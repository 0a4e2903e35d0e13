package domain

import "context"

// Label is the canonical sentiment taxonomy all model outputs normalize into.
type Label string

const (
	LabelNegative Label = "negative"
	LabelNeutral  Label = "neutral"
	LabelPositive Label = "positive"
)

// Valid reports whether l is one of the three canonical labels.
func (l Label) Valid() bool {
	return l == LabelNegative || l == LabelNeutral || l == LabelPositive
}

// ModelFamily classifies a model by its native output shape. The family
// determines which normalization rule applies.
type ModelFamily string

const (
	FamilyBinary  ModelFamily = "binary"
	FamilyTernary ModelFamily = "ternary"
	FamilyStars   ModelFamily = "star-rating-5"
)

// StarBuckets holds the star-rating bucket boundaries. The defaults (1-2
// negative, 3 neutral, 4-5 positive) match common review-model conventions but
// are configuration, not a hard rule.
type StarBuckets struct {
	NegativeMax int // stars <= NegativeMax map to negative
	PositiveMin int // stars >= PositiveMin map to positive
}

// DefaultStarBuckets is the bucketing used by the built-in catalog.
var DefaultStarBuckets = StarBuckets{NegativeMax: 2, PositiveMin: 4}

// ModelDescriptor describes a supported classification model: its identity,
// output family, declared raw label space (ordered) and the total mapping from
// raw labels to the canonical taxonomy. Descriptors are immutable once
// registered; one descriptor exists per supported model identifier.
type ModelDescriptor struct {
	ID             string           `json:"id"`
	Family         ModelFamily      `json:"family"`
	RawLabels      []string         `json:"raw_labels"`
	Mapping        map[string]Label `json:"-"`
	MaxInputLength int              `json:"max_input_length"`
	Description    string           `json:"description,omitempty"`
}

// Prediction is one (raw label, score) pair returned by a model runtime.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ModelRuntime is the opaque inference capability: load a model by identifier,
// then run predictions against it. Implementations talk to a model-serving
// backend; the orchestrator never touches tokenizers or weights directly.
type ModelRuntime interface {
	Load(ctx context.Context, modelID string) error
	Predict(ctx context.Context, modelID, text string) ([]Prediction, error)
}
