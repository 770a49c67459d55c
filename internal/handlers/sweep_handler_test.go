package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestSweepHandler(t *testing.T) {
	fixed := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	var regularAt, urgentAt time.Time
	sweeps := &mockSweepRunner{
		regularFn: func(_ context.Context, at time.Time) (int, error) {
			regularAt = at
			return 1, nil
		},
		urgentFn: func(_ context.Context, at time.Time) (int, error) {
			urgentAt = at
			return 3, nil
		},
	}
	handler := NewSweepHandler(sweeps)
	handler.now = func() time.Time { return fixed }

	r := gin.New()
	r.POST("/sweeps/regular", handler.RunRegular)
	r.POST("/sweeps/urgent", handler.RunUrgent)

	rec := doRequest(r, "POST", "/sweeps/regular", "")
	if rec.Code != http.StatusOK || parseJSON(t, rec)["sent"].(float64) != 1 {
		t.Errorf("unexpected regular response %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(r, "POST", "/sweeps/urgent", "")
	result := parseJSON(t, rec)
	if rec.Code != http.StatusOK || result["sent"].(float64) != 3 || result["kind"] != "urgent" {
		t.Errorf("unexpected urgent response %d %s", rec.Code, rec.Body.String())
	}

	if !regularAt.Equal(fixed) || !urgentAt.Equal(fixed) {
		t.Errorf("expected both sweeps at %s, got %s and %s", fixed, regularAt, urgentAt)
	}
}
