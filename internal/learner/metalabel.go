package learner

import "math"

// MetaLabeler is a binary logistic-regression classifier fitted offline
// (§4.5): optional, unused in the hot path, exposed as an interface so a
// live pipeline can plug one in without the signal/risk stages depending
// on its internals. Grounded on the teacher's hand-rolled AIMicroModel
// (weights + bias, sigmoid activation, gradient-step fit).
type MetaLabeler interface {
	PredictProba(features []float64) float64
	Fit(dataset [][]float64, labels []float64, epochs int, learningRate float64)
}

// LogisticMetaLabeler is the default MetaLabeler implementation: a weight
// vector plus a bias term, trained by batch gradient descent on the
// log-loss gradient.
type LogisticMetaLabeler struct {
	weights []float64
	bias    float64
}

// NewLogisticMetaLabeler constructs a labeler with nFeatures zero-valued
// weights and zero bias.
func NewLogisticMetaLabeler(nFeatures int) *LogisticMetaLabeler {
	return &LogisticMetaLabeler{weights: make([]float64, nFeatures)}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// PredictProba returns sigmoid(w.x + b).
func (m *LogisticMetaLabeler) PredictProba(features []float64) float64 {
	z := m.bias
	for i, w := range m.weights {
		if i < len(features) {
			z += w * features[i]
		}
	}
	return sigmoid(z)
}

// Fit runs epochs passes of batch gradient descent over dataset/labels at
// learningRate, updating weights and bias in place.
func (m *LogisticMetaLabeler) Fit(dataset [][]float64, labels []float64, epochs int, learningRate float64) {
	n := len(dataset)
	if n == 0 {
		return
	}
	nFeatures := len(m.weights)

	for epoch := 0; epoch < epochs; epoch++ {
		gradW := make([]float64, nFeatures)
		var gradB float64

		for i, x := range dataset {
			pred := m.PredictProba(x)
			err := pred - labels[i]
			for j := 0; j < nFeatures && j < len(x); j++ {
				gradW[j] += err * x[j]
			}
			gradB += err
		}

		for j := range m.weights {
			m.weights[j] -= learningRate * gradW[j] / float64(n)
		}
		m.bias -= learningRate * gradB / float64(n)
	}
}
