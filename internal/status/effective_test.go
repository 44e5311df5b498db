package status

import (
	"testing"

	"github.com/example/agriroute/internal/models"
)

func TestEffectiveTripProgressWins(t *testing.T) {
	if got := Effective(models.StatusAccepted, models.StatusDelivered); got != models.StatusDelivered {
		t.Fatalf("got %q, want DELIVERED", got)
	}
	if got := Effective(models.StatusInTransit, models.StatusLoading); got != models.StatusLoading {
		t.Fatalf("got %q, trip progress must win even when it lags", got)
	}
}

func TestEffectiveFallbackAndSentinel(t *testing.T) {
	if got := Effective(models.StatusAccepted, ""); got != models.StatusAccepted {
		t.Fatalf("got %q, want assignment fallback", got)
	}
	if got := Effective("", ""); got != models.StatusUnknown {
		t.Fatalf("got %q, want UNKNOWN sentinel", got)
	}
}

func TestStillActive(t *testing.T) {
	cases := []struct {
		assignment, trip string
		want             bool
	}{
		{models.StatusAccepted, "", true},
		{models.StatusAccepted, models.StatusDelivered, false},
		{models.StatusCancelled, "", false},
		{models.StatusRejected, "", false},
		{models.StatusCompleted, "", false},
		{models.StatusDelivered, models.StatusInTransit, true}, // trip progress says still moving
		{"", "", true},                                         // unknown is not terminal
	}
	for i, c := range cases {
		if got := StillActive(c.assignment, c.trip); got != c.want {
			t.Errorf("case %d (%q/%q): got %v, want %v", i, c.assignment, c.trip, got, c.want)
		}
	}
}
