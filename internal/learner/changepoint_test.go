package learner

import "testing"

func TestChangePointFalseBelowFullWindow(t *testing.T) {
	cp := NewChangePoint()
	for i := 0; i < changePointWindow-1; i++ {
		if cp.Update(0.01) {
			t.Fatalf("must not fire before the window fills, fired at sample %d", i)
		}
	}
}

func TestChangePointFiresOnDivergentHalves(t *testing.T) {
	cp := NewChangePointWithThreshold(1.0)
	for i := 0; i < changePointWindow/2; i++ {
		cp.Update(0.0)
	}
	var fired bool
	for i := 0; i < changePointWindow/2; i++ {
		fired = cp.Update(5.0)
	}
	if !fired {
		t.Fatal("expected change-point to fire once the second half diverges beyond threshold")
	}
}

func TestChangePointStaysQuietOnStableSeries(t *testing.T) {
	cp := NewChangePoint()
	var fired bool
	for i := 0; i < changePointWindow*2; i++ {
		if cp.Update(0.01) {
			fired = true
		}
	}
	if fired {
		t.Fatal("a stable series must never fire the change-point detector")
	}
}

func TestChangePointWindowSlidesFixedLength(t *testing.T) {
	cp := NewChangePoint()
	for i := 0; i < changePointWindow*3; i++ {
		cp.Update(float64(i))
	}
	if len(cp.samples) != changePointWindow {
		t.Fatalf("expected window length %d, got %d", changePointWindow, len(cp.samples))
	}
}
