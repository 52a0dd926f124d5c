package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveParse(t *testing.T) {
	before := testutil.ToFloat64(queriesParsed.WithLabelValues("units", "ok"))
	ObserveParse("units", "ok")
	ObserveParse("units", "ok")
	if got := testutil.ToFloat64(queriesParsed.WithLabelValues("units", "ok")); got != before+2 {
		t.Fatalf("expected %v, got %v", before+2, got)
	}
}

func TestObserveExecuteStatus(t *testing.T) {
	ObserveExecute("memory", time.Millisecond, nil)
	ObserveExecute("memory", time.Millisecond, errors.New("boom"))
	if n := testutil.CollectAndCount(executeDuration); n < 2 {
		t.Fatalf("expected ok and error series, got %d", n)
	}
}

func TestObserveWrite(t *testing.T) {
	before := testutil.ToFloat64(recordsWritten.WithLabelValues("memory", "put"))
	ObserveWrite("memory", "put", 3)
	if got := testutil.ToFloat64(recordsWritten.WithLabelValues("memory", "put")); got != before+3 {
		t.Fatalf("expected %v, got %v", before+3, got)
	}
}
