package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/Doudousmyle42/mangatracker/internal/ui"
)

// RefreshFailure is one entry that could not be refreshed.
type RefreshFailure struct {
	ID  int64
	Err error
}

type RefreshReport struct {
	Updated  []Entry
	Failures []RefreshFailure
	Stats    *ui.Stats
}

// RefreshAll refreshes ids (every entry when ids is empty) with at most
// maxParallel extractions in flight. A failing entry never stops the
// others; the returned error is only set when the run was cancelled or the
// library could not be listed.
func (s *Service) RefreshAll(
	ctx context.Context,
	ids []int64,
	maxParallel int,
	ph *ui.ProgressHandle,
) (*RefreshReport, error) {
	if len(ids) == 0 {
		all, err := s.store.List(ctx, "")
		if err != nil {
			return nil, err
		}
		for _, e := range all {
			ids = append(ids, e.ID)
		}
	}

	total := len(ids)
	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > total && total > 0 {
		maxParallel = total
	}

	report := &RefreshReport{Stats: &ui.Stats{}}
	var mu sync.Mutex

	jobs := make(chan int64)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for id := range jobs {
			e, newer, err := s.Refresh(ctx, id)

			mu.Lock()
			if err != nil {
				report.Stats.Failed.Add(1)
				report.Failures = append(report.Failures, RefreshFailure{ID: id, Err: err})
			} else {
				report.Stats.Refreshed.Add(1)
				if newer {
					report.Stats.NewChapters.Add(1)
					report.Updated = append(report.Updated, e)
				}
			}
			mu.Unlock()

			ph.Step(err != nil)
		}
	}

	wg.Add(maxParallel)
	for w := 0; w < maxParallel; w++ {
		go worker()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			ph.MarkDone()
			return report, ctx.Err()
		case jobs <- id:
		}
	}

	close(jobs)
	wg.Wait()
	ph.MarkDone()

	if n := len(report.Failures); n > 0 && s.log != nil {
		s.log.Warnf("failed to refresh %d/%d entries\n", n, total)
	}

	return report, nil
}

func (f RefreshFailure) String() string {
	return fmt.Sprintf("#%d: %v", f.ID, f.Err)
}
