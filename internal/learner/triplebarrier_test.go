package learner

import "testing"

func TestTripleBarrierLabelUpperTouchFirst(t *testing.T) {
	path := []float64{100, 101, 103, 90}
	label := TripleBarrierLabel(path, 100, 2, -5, 10)
	if label != 1 {
		t.Fatalf("expected +1 upper touch, got %d", label)
	}
}

func TestTripleBarrierLabelLowerTouchFirst(t *testing.T) {
	path := []float64{100, 98, 94, 110}
	label := TripleBarrierLabel(path, 100, 8, -5, 10)
	if label != -1 {
		t.Fatalf("expected -1 lower touch, got %d", label)
	}
}

func TestTripleBarrierLabelNoTouchWithinMaxSteps(t *testing.T) {
	path := []float64{100, 100.5, 99.5, 100.2}
	label := TripleBarrierLabel(path, 100, 5, -5, 4)
	if label != 0 {
		t.Fatalf("expected 0 no-touch, got %d", label)
	}
}

func TestTripleBarrierLabelRespectsMaxStepsEvenIfPathLonger(t *testing.T) {
	path := []float64{100, 100.1, 100.2, 200}
	label := TripleBarrierLabel(path, 100, 5, -5, 3)
	if label != 0 {
		t.Fatalf("a touch past maxSteps must not count, got %d", label)
	}
}

func TestTripleBarrierLabelMaxStepsClampedToPathLength(t *testing.T) {
	path := []float64{100, 101}
	label := TripleBarrierLabel(path, 100, 0.5, -0.5, 1000)
	if label != 1 {
		t.Fatalf("expected +1 touch within the short path, got %d", label)
	}
}
