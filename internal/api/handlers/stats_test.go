package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"permguard-lab/pkg/logger"
)

type fixedCounter struct {
	n   int64
	err error
}

func (c fixedCounter) ReportsGenerated(context.Context) (int64, error) {
	return c.n, c.err
}

func TestStatsReportsCounter(t *testing.T) {
	tests := []struct {
		name    string
		counter ReportCounter
		want    *int64
	}{
		{"counter", fixedCounter{n: 42}, ptr(int64(42))},
		{"counter error", fixedCounter{err: errors.New("redis down")}, nil},
		{"no counter", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatsHandler(tt.counter, nil, logger.NewNop())
			rec := httptest.NewRecorder()
			h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var stats Stats
			if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
				t.Fatal(err)
			}
			switch {
			case tt.want == nil && stats.ReportsGenerated != nil:
				t.Errorf("reports_generated = %d, want null", *stats.ReportsGenerated)
			case tt.want != nil && (stats.ReportsGenerated == nil || *stats.ReportsGenerated != *tt.want):
				t.Errorf("reports_generated = %v, want %d", stats.ReportsGenerated, *tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
