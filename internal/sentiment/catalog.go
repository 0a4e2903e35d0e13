package sentiment

import (
	"fmt"
	"strconv"

	"github.com/tgedin/sentimentflow/internal/domain"
)

// Default model identifiers. The catalog ships with one model per
// supported family so every label shape is covered out of the box.
const (
	ModelDistilBERT = "distilbert-base-uncased-finetuned-sst-2-english"
	ModelRoBERTa    = "cardiffnlp/twitter-roberta-base-sentiment"
	ModelBERTStars  = "nlptown/bert-base-multilingual-uncased-sentiment"
)

const defaultMaxInputLength = 512

// Catalog holds the set of model descriptors the service is willing to
// serve. Registration validates each descriptor up front so that a
// prediction can never surface a raw label the mapping does not cover.
type Catalog struct {
	descriptors map[string]domain.ModelDescriptor
	order       []string
}

func NewCatalog() *Catalog {
	return &Catalog{descriptors: make(map[string]domain.ModelDescriptor)}
}

// DefaultCatalog returns a catalog with the three built-in models.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	must := func(err error) {
		if err != nil {
			panic(fmt.Sprintf("sentiment: invalid built-in descriptor: %v", err))
		}
	}

	must(c.Register(BinaryDescriptor(
		ModelDistilBERT,
		"NEGATIVE", "POSITIVE",
		defaultMaxInputLength,
		"DistilBERT fine-tuned on SST-2, binary polarity",
	)))
	must(c.Register(TernaryDescriptor(
		ModelRoBERTa,
		[3]string{"LABEL_0", "LABEL_1", "LABEL_2"},
		defaultMaxInputLength,
		"Twitter RoBERTa, three-way polarity",
	)))
	must(c.Register(StarDescriptor(
		ModelBERTStars,
		domain.DefaultStarBuckets,
		defaultMaxInputLength,
		"Multilingual BERT product reviews, 1-5 star rating",
	)))

	return c
}

// Register validates and adds a descriptor. It rejects duplicates,
// unknown families, and mappings that do not cover every raw label.
func (c *Catalog) Register(desc domain.ModelDescriptor) error {
	if desc.ID == "" {
		return fmt.Errorf("descriptor has empty model id")
	}
	if _, exists := c.descriptors[desc.ID]; exists {
		return fmt.Errorf("model %q already registered", desc.ID)
	}
	if err := validateDescriptor(desc); err != nil {
		return fmt.Errorf("model %q: %w", desc.ID, err)
	}
	c.descriptors[desc.ID] = desc
	c.order = append(c.order, desc.ID)
	return nil
}

// Get returns the descriptor for the given model id.
func (c *Catalog) Get(modelID string) (domain.ModelDescriptor, bool) {
	desc, ok := c.descriptors[modelID]
	return desc, ok
}

// List returns all descriptors in registration order.
func (c *Catalog) List() []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.descriptors[id])
	}
	return out
}

func validateDescriptor(desc domain.ModelDescriptor) error {
	wantLabels := 0
	switch desc.Family {
	case domain.FamilyBinary:
		wantLabels = 2
	case domain.FamilyTernary:
		wantLabels = 3
	case domain.FamilyStars:
		wantLabels = 5
	default:
		return fmt.Errorf("unknown model family %q", desc.Family)
	}
	if len(desc.RawLabels) != wantLabels {
		return fmt.Errorf("family %s expects %d raw labels, got %d", desc.Family, wantLabels, len(desc.RawLabels))
	}
	if desc.MaxInputLength <= 0 {
		return fmt.Errorf("max input length must be positive")
	}
	seen := make(map[string]struct{}, len(desc.RawLabels))
	for _, raw := range desc.RawLabels {
		if _, dup := seen[raw]; dup {
			return fmt.Errorf("duplicate raw label %q", raw)
		}
		seen[raw] = struct{}{}
		label, ok := desc.Mapping[raw]
		if !ok {
			return fmt.Errorf("raw label %q has no canonical mapping", raw)
		}
		if !label.Valid() {
			return fmt.Errorf("raw label %q maps to invalid canonical label %q", raw, label)
		}
	}
	return nil
}

// BinaryDescriptor builds a descriptor for a two-label model. The two
// raw labels map to negative and positive; such models never emit
// neutral.
func BinaryDescriptor(id, negative, positive string, maxLen int, description string) domain.ModelDescriptor {
	return domain.ModelDescriptor{
		ID:        id,
		Family:    domain.FamilyBinary,
		RawLabels: []string{negative, positive},
		Mapping: map[string]domain.Label{
			negative: domain.LabelNegative,
			positive: domain.LabelPositive,
		},
		MaxInputLength: maxLen,
		Description:    description,
	}
}

// TernaryDescriptor builds a descriptor for a three-label model whose
// raw labels are given in negative, neutral, positive order.
func TernaryDescriptor(id string, ordered [3]string, maxLen int, description string) domain.ModelDescriptor {
	return domain.ModelDescriptor{
		ID:        id,
		Family:    domain.FamilyTernary,
		RawLabels: ordered[:],
		Mapping: map[string]domain.Label{
			ordered[0]: domain.LabelNegative,
			ordered[1]: domain.LabelNeutral,
			ordered[2]: domain.LabelPositive,
		},
		MaxInputLength: maxLen,
		Description:    description,
	}
}

// StarDescriptor builds a descriptor for a five-star rating model with
// raw labels "1 star" through "5 stars", bucketed into the canonical
// taxonomy by the given thresholds.
func StarDescriptor(id string, buckets domain.StarBuckets, maxLen int, description string) domain.ModelDescriptor {
	raw := make([]string, 5)
	mapping := make(map[string]domain.Label, 5)
	for stars := 1; stars <= 5; stars++ {
		label := strconv.Itoa(stars) + " star"
		if stars > 1 {
			label += "s"
		}
		raw[stars-1] = label
		switch {
		case stars <= buckets.NegativeMax:
			mapping[label] = domain.LabelNegative
		case stars >= buckets.PositiveMin:
			mapping[label] = domain.LabelPositive
		default:
			mapping[label] = domain.LabelNeutral
		}
	}
	return domain.ModelDescriptor{
		ID:             id,
		Family:         domain.FamilyStars,
		RawLabels:      raw,
		Mapping:        mapping,
		MaxInputLength: maxLen,
		Description:    description,
	}
}
