package queryplan

import (
	"context"

	"golang.org/x/sync/errgroup"

	"nscat/pkg/dberror"
	"nscat/pkg/logging"
)

// Runner races a PlanSet's candidates to completion. Construction — cloning
// one QueryOp per plan and calling Init on each — happens concurrently via
// errgroup; the race itself is single-threaded round-robin over the live
// clones, matching spec.md §4.5's description of the original's
// QueryOptimizerCursor: parallelism belongs to setup, not to the race.
type Runner struct {
	Plans []*QueryPlan
}

type raceSlot struct {
	plan    *QueryPlan
	op      QueryOp
	retired bool
	err     error
}

// Run clones base once per plan, initializes every clone concurrently, and
// then round-robins Next across the live clones until one reports Complete
// (a win), all retire with errors (failure), or ctx is canceled.
//
// On success it returns the winning plan and its QueryOp, positioned at
// its first result. On failure it returns the first error any clone
// raised, or a generic exhaustion error if every clone simply ran out of
// results without ever erroring.
func (r *Runner) Run(ctx context.Context, base QueryOp) (*QueryPlan, QueryOp, error) {
	logger := logging.WithComponent("queryplan")

	slots := make([]*raceSlot, len(r.Plans))
	for i, p := range r.Plans {
		slots[i] = &raceSlot{plan: p, op: base.Clone()}
	}

	var g errgroup.Group
	for _, s := range slots {
		s := s
		g.Go(func() error {
			if err := s.op.Init(s.plan); err != nil {
				s.retired = true
				s.err = err
			}
			return nil
		})
	}
	_ = g.Wait()

	live := 0
	for _, s := range slots {
		if !s.retired {
			live++
		}
	}
	if live == 0 {
		return nil, nil, firstSlotError(slots)
	}

	for live > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, dberror.Interruptedf("queryplan.Runner.Run")
		default:
		}

		for _, s := range slots {
			if s.retired {
				continue
			}
			if err := s.op.Next(); err != nil {
				s.retired = true
				s.err = err
				live--
				continue
			}
			if s.op.StopRequested() {
				s.retired = true
				live--
				continue
			}
			if s.op.Complete() {
				logger.Infow("plan won race", "ns", s.plan.NS, "index_no", s.plan.IndexNo)
				if s.plan.Optimal() {
					retireOthers(slots, s)
				}
				return s.plan, s.op, nil
			}
		}
	}

	return nil, nil, firstSlotError(slots)
}

func retireOthers(slots []*raceSlot, winner *raceSlot) {
	for _, s := range slots {
		if s != winner {
			s.retired = true
		}
	}
}

func firstSlotError(slots []*raceSlot) error {
	for _, s := range slots {
		if s.err != nil {
			return s.err
		}
	}
	return dberror.Resourcef("queryplan", "all candidate plans were exhausted without completing")
}
