// Package memory keeps reports in process memory. It backs the API when no
// database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"simplesurvey/domain/core"
	"simplesurvey/domain/report"
	"simplesurvey/ports"
)

// ReportRepository is a goroutine-safe in-memory report store
type ReportRepository struct {
	mu      sync.RWMutex
	order   []core.ReportID
	reports map[core.ReportID]*report.Stored
	now     func() time.Time
}

var _ ports.ReportRepository = (*ReportRepository)(nil)

// NewReportRepository creates an empty store
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[core.ReportID]*report.Stored),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Save stores a report under a fresh id
func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) (*report.Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &report.Stored{ID: core.NewReportID(), CreatedAt: r.now(), Report: rep}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[s.ID] = s
	r.order = append(r.order, s.ID)
	return s, nil
}

// Get returns a stored report
func (r *ReportRepository) Get(ctx context.Context, id core.ReportID) (*report.Stored, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrReportNotFound, id)
	}
	return s, nil
}

// List returns up to limit reports, newest first
func (r *ReportRepository) List(ctx context.Context, limit int) ([]*report.Stored, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]*report.Stored, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.reports[r.order[i]])
	}
	return out, nil
}
