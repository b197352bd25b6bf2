package queryplan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedOp is a QueryOp whose behavior is driven by a fixed script,
// letting tests exercise Runner.Run without a real cursor/storage stack.
type scriptedOp struct {
	name        string
	initErr     error
	stepsToWin  int // Next calls before Complete() reports true; -1 never completes
	nextErr     error
	nextErrStep int // Next call index (0-based) on which nextErr fires; -1 never
	stopAtStep  int // Next call index after which StopRequested() is true; -1 never
	steps       int
}

func (s *scriptedOp) Clone() QueryOp { c := *s; return &c }
func (s *scriptedOp) Init(plan *QueryPlan) error { return s.initErr }
func (s *scriptedOp) Next() error {
	if s.nextErrStep >= 0 && s.steps == s.nextErrStep {
		s.steps++
		return s.nextErr
	}
	s.steps++
	return nil
}
func (s *scriptedOp) Complete() bool { return s.stepsToWin >= 0 && s.steps >= s.stepsToWin }
func (s *scriptedOp) QueryError() error { return nil }
func (s *scriptedOp) StopRequested() bool {
	return s.stopAtStep >= 0 && s.steps >= s.stopAtStep
}

func newScripted(name string) *scriptedOp {
	return &scriptedOp{name: name, stepsToWin: -1, nextErrStep: -1, stopAtStep: -1}
}

func TestRunnerPicksFastestCompletingPlan(t *testing.T) {
	fast := newScripted("fast")
	fast.stepsToWin = 1
	slow := newScripted("slow")
	slow.stepsToWin = 100

	r := &Runner{Plans: []*QueryPlan{
		NewIndexPlan("acme.orders", 0, []string{"a"}, Forward),
		NewIndexPlan("acme.orders", 1, []string{"b"}, Forward),
	}}

	// base.Clone() must yield clones matching each plan's own script;
	// since Clone on *scriptedOp just copies itself, a dispatching base op
	// picks each clone's script by the plan it is Init'd with.
	base := &dispatchOp{byIndexNo: map[int]*scriptedOp{0: fast, 1: slow}}

	plan, op, err := r.Run(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.IndexNo)
	assert.NotNil(t, op)
}

// dispatchOp clones into the scripted op matching the plan it's Init'd
// with, letting one Runner.Run call exercise multiple distinct scripts.
type dispatchOp struct {
	byIndexNo map[int]*scriptedOp
	active    *scriptedOp
}

func (d *dispatchOp) Clone() QueryOp { return &dispatchOp{byIndexNo: d.byIndexNo} }
func (d *dispatchOp) Init(plan *QueryPlan) error {
	d.active = d.byIndexNo[plan.IndexNo].Clone().(*scriptedOp)
	return d.active.Init(plan)
}
func (d *dispatchOp) Next() error          { return d.active.Next() }
func (d *dispatchOp) Complete() bool       { return d.active.Complete() }
func (d *dispatchOp) QueryError() error    { return d.active.QueryError() }
func (d *dispatchOp) StopRequested() bool  { return d.active.StopRequested() }

func TestRunnerReturnsOptimalPlanThatCompletesFirst(t *testing.T) {
	optimalPlan := NewIndexPlan("acme.orders", 0, []string{"a"}, Forward)
	optimalPlan.SetOptimal(true)
	other := NewIndexPlan("acme.orders", 1, []string{"b"}, Forward)

	winner := newScripted("winner")
	winner.stepsToWin = 1
	loser := newScripted("loser")
	loser.stepsToWin = 2

	base := &dispatchOp{byIndexNo: map[int]*scriptedOp{0: winner, 1: loser}}
	r := &Runner{Plans: []*QueryPlan{optimalPlan, other}}

	plan, _, err := r.Run(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, 0, plan.IndexNo)
}

func TestRunnerReturnsErrorWhenAllClonesFailInit(t *testing.T) {
	failing := newScripted("failing")
	failing.initErr = errors.New("init failed")

	base := &dispatchOp{byIndexNo: map[int]*scriptedOp{0: failing}}
	r := &Runner{Plans: []*QueryPlan{NewIndexPlan("acme.orders", 0, []string{"a"}, Forward)}}

	_, _, err := r.Run(context.Background(), base)
	assert.Error(t, err)
}

func TestRunnerReturnsErrorWhenAllClonesExhaustWithoutCompleting(t *testing.T) {
	never := newScripted("never")
	never.stopAtStep = 1

	base := &dispatchOp{byIndexNo: map[int]*scriptedOp{0: never}}
	r := &Runner{Plans: []*QueryPlan{NewIndexPlan("acme.orders", 0, []string{"a"}, Forward)}}

	_, _, err := r.Run(context.Background(), base)
	assert.Error(t, err)
}

func TestRunnerHonorsContextCancellation(t *testing.T) {
	stuck := newScripted("stuck")

	base := &dispatchOp{byIndexNo: map[int]*scriptedOp{0: stuck}}
	r := &Runner{Plans: []*QueryPlan{NewIndexPlan("acme.orders", 0, []string{"a"}, Forward)}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := r.Run(ctx, base)
	assert.Error(t, err)
}
