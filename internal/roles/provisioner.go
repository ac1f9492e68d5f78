package roles

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// OutcomeStatus classifies the result of reconciling one definition.
type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeUpdated OutcomeStatus = "updated"
	// OutcomeRaced means the store reported a uniqueness conflict, which is
	// treated as another writer having provisioned the same definition.
	OutcomeRaced  OutcomeStatus = "raced"
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome reports what happened to a single definition during Reconcile.
type Outcome struct {
	ShortName string
	Status    OutcomeStatus
	Err       error
}

// Provisioner reconciles the declarative role catalog against the store at
// startup.
type Provisioner struct {
	store  Store
	logger *slog.Logger
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(store Store, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{store: store, logger: logger}
}

// Reconcile upserts every definition concurrently and waits for all of them.
// It never fails as a whole: conflicts are swallowed as benign races, any
// other error is logged as a warning with the offending short name and kept
// in that definition's outcome. Outcomes are returned in input order.
func (p *Provisioner) Reconcile(ctx context.Context, defs []RoleDefinition) []Outcome {
	outcomes := make([]Outcome, len(defs))

	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = p.reconcileOne(ctx, def)
		}()
	}
	wg.Wait()

	return outcomes
}

func (p *Provisioner) reconcileOne(ctx context.Context, def RoleDefinition) Outcome {
	outcome := Outcome{ShortName: def.ShortName}

	existing, err := p.store.Find(ctx, Filter{ShortName: def.ShortName})
	if err != nil {
		return p.settle(outcome, err)
	}

	role := Role{
		ShortName:   def.ShortName,
		DisplayName: def.DisplayName,
		Extends:     def.Extends,
		Scopes:      def.Scopes,
	}

	if len(existing) > 0 {
		if err := p.store.Replace(ctx, existing[0].ID, role); err != nil {
			return p.settle(outcome, err)
		}
		outcome.Status = OutcomeUpdated
		return outcome
	}

	if _, err := p.store.Insert(ctx, role); err != nil {
		return p.settle(outcome, err)
	}
	outcome.Status = OutcomeCreated
	return outcome
}

// settle applies the conflict-tolerant policy: conflicts are silent, other
// errors warn and are recorded, and neither aborts the batch.
func (p *Provisioner) settle(outcome Outcome, err error) Outcome {
	if errors.Is(err, ErrConflict) {
		outcome.Status = OutcomeRaced
		return outcome
	}
	outcome.Status = OutcomeFailed
	outcome.Err = err
	p.logger.Warn("role reconciliation failed",
		slog.String("short_name", outcome.ShortName),
		slog.String("error", err.Error()))
	return outcome
}
