package predict

// Scorer produces a prediction score in [0, 1] for a candidate opportunity.
// Implementations must be safe for repeated calls from the scan loop.
type Scorer interface {
	Score(features map[string]float64) (float64, error)
}

// ConstScorer is the model placeholder: it always returns the same score.
// It stands in until a trained model is plugged behind the Scorer interface.
type ConstScorer struct {
	value float64
}

func NewConstScorer() *ConstScorer {
	return &ConstScorer{value: 0.5}
}

func NewConstScorerWith(value float64) *ConstScorer {
	return &ConstScorer{value: value}
}

func (c *ConstScorer) Score(_ map[string]float64) (float64, error) {
	return c.value, nil
}
