package export

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// SettleReport lists which resources loaded and which failed.
type SettleReport struct {
	Loaded []string
	Failed []ResourceFailure
}

// ResourceFailure is a resource that settled without loading.
type ResourceFailure struct {
	Name string
	Err  error
}

// Settled reports the number of resources that reached a terminal state.
func (r SettleReport) Settled() int {
	return len(r.Loaded) + len(r.Failed)
}

// Settler waits until every embedded resource has finished loading or failed.
type Settler struct {
	Logger Logger
}

// Settle waits on every resource in parallel. Load failures count as settled;
// only ctx ending stops the wait early.
func (s Settler) Settle(ctx context.Context, resources []Resource) (SettleReport, error) {
	logger := s.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	report := SettleReport{}
	if len(resources) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	for _, res := range resources {
		if res == nil {
			continue
		}
		group.Go(func() error {
			err := res.Load(gctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, ResourceFailure{Name: res.Name(), Err: err})
				logger.Errorf("resource %s failed to load: %v", res.Name(), err)
				return nil
			}
			report.Loaded = append(report.Loaded, res.Name())
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return report, err
	}
	logger.Debugf("settled %d resources (%d failed)", report.Settled(), len(report.Failed))
	return report, nil
}
