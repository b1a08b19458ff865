package plans

import "testing"

func TestFreePlanLoaded(t *testing.T) {
	if Free.MaxAnalysesPerMonth <= 0 {
		t.Errorf("expected positive analyses limit, got %d", Free.MaxAnalysesPerMonth)
	}
	if Free.MaxVideoDurationSeconds != 900 {
		t.Errorf("expected 900 second duration ceiling, got %d", Free.MaxVideoDurationSeconds)
	}
}
