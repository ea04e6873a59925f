package engine

import (
	"context"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// Targets yields the providers of a session one at a time. Next returns
// false when the session is over. Interactive sessions decide the next
// target only after the previous one has been scanned.
type Targets interface {
	Next(ctx context.Context) (Target, bool)
}

// TargetList is a Targets over a precomputed list.
type TargetList []Target

func (l *TargetList) Next(context.Context) (Target, bool) {
	if len(*l) == 0 {
		return nil, false
	}
	t := (*l)[0]
	*l = (*l)[1:]
	return t, true
}

// ScanAll scans targets one after another and appends each result to a new
// ScanSummary as soon as that provider completes. A failed provider does not
// stop the others; a cancelled context does.
func ScanAll(ctx context.Context, eng Engine, targets Targets) *models.ScanSummary {
	summary := &models.ScanSummary{}
	for ctx.Err() == nil {
		t, ok := targets.Next(ctx)
		if !ok {
			break
		}
		summary.AddResult(eng.Scan(ctx, t))
	}
	return summary
}
