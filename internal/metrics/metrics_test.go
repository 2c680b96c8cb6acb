package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveRequest("submit-answer", 200, 20*time.Millisecond)
	r.ObserveRequest("submit-answer", 200, 30*time.Millisecond)
	r.ObserveRequest("start-interview", 402, time.Millisecond)
	r.Turn(OutcomeTimeout)
	r.CaptureFailure("permission_denied")
	r.SessionEnded("complete")

	if got := testutil.ToFloat64(r.apiRequests.WithLabelValues("submit-answer", "200")); got != 2 {
		t.Fatalf("unexpected submit count: %v", got)
	}
	if got := testutil.ToFloat64(r.apiRequests.WithLabelValues("start-interview", "402")); got != 1 {
		t.Fatalf("unexpected 402 count: %v", got)
	}
	if got := testutil.ToFloat64(r.turns.WithLabelValues(OutcomeTimeout)); got != 1 {
		t.Fatalf("unexpected timeout count: %v", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ObserveRequest("x", 500, time.Second)
	r.Turn(OutcomeSkipped)
	r.CaptureFailure("x")
	r.SessionEnded("cancelled")
	if r.Registry() != nil {
		t.Fatalf("expected nil registry")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Turn(OutcomeAnswered)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "interviewcoach_interview_turns_total") {
		t.Fatalf("turn metric missing from exposition")
	}
}
