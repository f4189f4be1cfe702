package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDecisionsCounterLabels(t *testing.T) {
	c := DecisionsTotal.WithLabelValues("narrow", "applied")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}
