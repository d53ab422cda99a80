package sync

import (
	"context"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// SyncIndustry pulls all corporation industry jobs, completed included.
// Jobs change status upstream until delivered, cancelled or reverted, so
// the run always fetches to exhaustion; terminal rows are skipped by the
// store on commit.
func (e *Engine) SyncIndustry(ctx context.Context) (model.SyncRun, error) {
	run := e.newRun(store.DomainIndustry)

	e.enterPhase(store.DomainIndustry, phaseFetching)
	var pages [][]model.IndustryJob
	for page := 1; ; page++ {
		jobs, total, err := e.src.IndustryJobs(ctx, page)
		if err != nil {
			return e.finish(ctx, run, store.Counts{}, 0, err)
		}
		if len(jobs) == 0 {
			break
		}
		pages = append(pages, jobs)
		if page >= total {
			break
		}
	}

	e.enterPhase(store.DomainIndustry, phaseCommitting)
	var counts store.Counts
	for i := len(pages) - 1; i >= 0; i-- {
		jobs := pages[i]
		c, err := e.store.SaveIndustryPage(ctx, jobs, maxJobID(jobs))
		if err != nil {
			return e.finish(ctx, run, counts, len(pages)-1-i, err)
		}
		counts.Add(c)
	}

	e.enterPhase(store.DomainIndustry, phaseDone)
	return e.finish(ctx, run, counts, len(pages), nil)
}

func maxJobID(jobs []model.IndustryJob) int64 {
	var max int64
	for _, j := range jobs {
		if j.JobID > max {
			max = j.JobID
		}
	}
	return max
}
