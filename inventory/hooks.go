package inventory

import (
	"context"
	"errors"
)

// Change is the full image of one obligation mutation handed to hooks:
// the pre-write and post-write views plus the status plan the coordinator
// is about to apply (or has applied).
type Change struct {
	Kind   ObligationKind
	Before *ObligationView
	After  *ObligationView
	Plan   Plan
}

// BeforeCommitFunc runs inside the coordinator's transaction, after the plan
// has been computed and before anything is written. Returning an error
// aborts the whole transaction.
type BeforeCommitFunc func(ctx context.Context, change Change) error

// AfterCommitFunc runs after the transaction has committed successfully.
// It must not assume it can still influence the outcome.
type AfterCommitFunc func(ctx context.Context, change Change)

// HookRegistry dispatches typed before-commit and after-commit callbacks per
// obligation kind. It replaces ambient global record hooks with explicit
// registration; a nil registry dispatches nothing.
//
// Registration is not synchronized: register all hooks before handing the
// registry to an engine.
type HookRegistry struct {
	before map[ObligationKind][]BeforeCommitFunc
	after  map[ObligationKind][]AfterCommitFunc
}

// NewHookRegistry creates an empty HookRegistry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		before: make(map[ObligationKind][]BeforeCommitFunc),
		after:  make(map[ObligationKind][]AfterCommitFunc),
	}
}

// OnBeforeCommit registers a before-commit callback for one obligation kind.
func (r *HookRegistry) OnBeforeCommit(kind ObligationKind, fn BeforeCommitFunc) {
	r.before[kind] = append(r.before[kind], fn)
}

// OnAfterCommit registers an after-commit callback for one obligation kind.
func (r *HookRegistry) OnAfterCommit(kind ObligationKind, fn AfterCommitFunc) {
	r.after[kind] = append(r.after[kind], fn)
}

// RunBeforeCommit invokes the registered before-commit callbacks for the
// change's kind in registration order. The first error stops dispatch and is
// returned joined with ErrBeforeCommitHookFailed.
func (r *HookRegistry) RunBeforeCommit(ctx context.Context, change Change) error {
	if r == nil {
		return nil
	}

	for _, fn := range r.before[change.Kind] {
		if err := fn(ctx, change); err != nil {
			return errors.Join(ErrBeforeCommitHookFailed, err)
		}
	}

	return nil
}

// RunAfterCommit invokes the registered after-commit callbacks for the
// change's kind in registration order.
func (r *HookRegistry) RunAfterCommit(ctx context.Context, change Change) {
	if r == nil {
		return
	}

	for _, fn := range r.after[change.Kind] {
		fn(ctx, change)
	}
}
