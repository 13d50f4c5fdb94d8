// Package orchestrator executes workflow commands: permission check, FSM
// proposal, then the atomic commit of the item mutation together with exactly
// one audit ledger entry. It is the only component external callers invoke.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"servicedesk-control-plane/internal/apperr"
	"servicedesk-control-plane/internal/ledger"
	lddomain "servicedesk-control-plane/internal/ledger/domain"
	"servicedesk-control-plane/internal/notify"
	"servicedesk-control-plane/internal/permission"
	wfdomain "servicedesk-control-plane/internal/workflow/domain"
)

// Command is one unit of caller intent. ActorID and ActorRole come from the
// identity collaborator and are trusted as-is.
type Command struct {
	ActorID    string
	ActorRole  permission.Role
	ItemID     string
	Transition wfdomain.Transition
	// Payload carries field edits (title, description, category, priority)
	// and assignee_id, all as strings. Unknown keys are rejected.
	Payload map[string]any
	// IdempotencyKey, when set, makes retries of this exact command safe:
	// a replay returns the committed snapshot without applying it again.
	IdempotencyKey string
}

// Store is the minimal atomic persistence needed by the orchestrator. Both
// halves of a commit succeed or fail together. The commit methods report
// replayed true when idemKey matched an earlier commit and the returned item
// is that commit's snapshot rather than a fresh application.
type Store interface {
	GetItem(ctx context.Context, id string) (*wfdomain.Item, error)
	CommitCreate(ctx context.Context, item *wfdomain.Item, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error)
	CommitTransition(ctx context.Context, item *wfdomain.Item, expectedVersion int64, rec lddomain.Record, idemKey string) (*wfdomain.Item, bool, error)
}

// Ledger is the read and alarm surface of the audit ledger needed by the
// orchestrator's query and verification operations.
type Ledger interface {
	ledger.Source
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*lddomain.Entry, error)
	OpenAlarm(ctx context.Context, sequence uint64, expected, actual string, at time.Time) error
}

// Orchestrator composes the permission matrix, the workflow FSM, and the
// ledger into atomic commands.
type Orchestrator struct {
	store    Store
	ledger   Ledger
	notifier notify.Notifier

	commands metric.Int64Counter

	nowF  func() time.Time
	newID func() string
}

// New returns an orchestrator over the given store and ledger. notifier may
// be nil (no events emitted); meter may be nil (no metrics recorded).
func New(store Store, ledger Ledger, notifier notify.Notifier, meter metric.Meter) *Orchestrator {
	if meter == nil {
		meter = noop.Meter{}
	}
	commands, err := meter.Int64Counter("workflow.commands",
		metric.WithDescription("Workflow commands executed, by transition and outcome."))
	if err != nil {
		log.Printf("orchestrator: commands counter: %v", err)
	}
	return &Orchestrator{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		commands: commands,
		nowF:     func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Execute runs one command as a single atomic unit and returns the committed
// item snapshot, or a typed error with no partial effects.
func (o *Orchestrator) Execute(ctx context.Context, cmd Command) (*wfdomain.Item, error) {
	item, err := o.execute(ctx, cmd)
	o.record(ctx, cmd.Transition, err)
	return item, err
}

func (o *Orchestrator) execute(ctx context.Context, cmd Command) (*wfdomain.Item, error) {
	if !cmd.ActorRole.IsValid() {
		return nil, &apperr.ValidationError{Field: "actor_role", Reason: "unknown role " + cmd.ActorRole.String()}
	}
	if cmd.ActorID == "" {
		return nil, &apperr.ValidationError{Field: "actor_id", Reason: "must not be empty"}
	}
	if !cmd.Transition.IsValid() {
		return nil, &apperr.ValidationError{Field: "transition", Reason: "unknown transition " + cmd.Transition.String()}
	}
	payload, err := parsePayload(cmd.Payload)
	if err != nil {
		return nil, err
	}

	if cmd.Transition == wfdomain.TransitionCreate {
		return o.executeCreate(ctx, cmd, payload)
	}

	if cmd.ItemID == "" {
		return nil, &apperr.ValidationError{Field: "item_id", Reason: "must not be empty"}
	}
	item, err := o.store.GetItem(ctx, cmd.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &apperr.NotFoundError{ItemID: cmd.ItemID}
	}

	isOwner := cmd.ActorID == item.CreatorID
	if !permission.IsAllowed(cmd.ActorRole, cmd.Transition, isOwner) {
		return nil, &apperr.PermissionDeniedError{Role: cmd.ActorRole.String(), Transition: cmd.Transition.String()}
	}

	next, err := item.ProposeTransition(cmd.Transition)
	if err != nil {
		return nil, err
	}

	now := o.nowF()
	mutated := item.Clone()
	switch cmd.Transition {
	case wfdomain.TransitionUpdate:
		if err := mutated.ApplyEdits(payload.fields); err != nil {
			return nil, err
		}
	case wfdomain.TransitionAssign:
		if payload.assigneeID == "" {
			return nil, &apperr.ValidationError{Field: "assignee_id", Reason: "must not be empty"}
		}
		mutated.AssigneeID = payload.assigneeID
	}
	before := mutated.Status
	mutated.Status = next
	mutated.UpdatedAt = now

	rec := lddomain.Record{
		EntityType:  lddomain.EntityTypeWorkflowItem,
		EntityID:    mutated.ID,
		Action:      cmd.Transition.String(),
		ActorID:     cmd.ActorID,
		ActorRole:   cmd.ActorRole.String(),
		BeforeState: before.String(),
		AfterState:  next.String(),
		Timestamp:   now,
	}
	committed, replayed, err := o.store.CommitTransition(ctx, mutated, item.Version, rec, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if replayed {
		// The original commit already notified; a retry must not emit twice.
		return committed, nil
	}

	notify.EmitAsync(o.notifier, &notify.Event{
		ItemID:     committed.ID,
		Action:     rec.Action,
		FromState:  rec.BeforeState,
		ToState:    rec.AfterState,
		ActorID:    rec.ActorID,
		ActorRole:  rec.ActorRole,
		AssigneeID: committed.AssigneeID,
		OccurredAt: now,
	})
	return committed, nil
}

func (o *Orchestrator) executeCreate(ctx context.Context, cmd Command, payload parsedPayload) (*wfdomain.Item, error) {
	if !permission.IsAllowed(cmd.ActorRole, wfdomain.TransitionCreate, true) {
		return nil, &apperr.PermissionDeniedError{Role: cmd.ActorRole.String(), Transition: cmd.Transition.String()}
	}
	now := o.nowF()
	title, description := "", ""
	if payload.fields.Title != nil {
		title = *payload.fields.Title
	}
	if payload.fields.Description != nil {
		description = *payload.fields.Description
	}
	var category wfdomain.Category
	if payload.fields.Category != nil {
		category = *payload.fields.Category
	}
	var priority wfdomain.Priority
	if payload.fields.Priority != nil {
		priority = *payload.fields.Priority
	}
	item, err := wfdomain.NewItem(o.newID(), cmd.ActorID, title, description, category, priority, now)
	if err != nil {
		return nil, err
	}

	rec := lddomain.Record{
		EntityType: lddomain.EntityTypeWorkflowItem,
		EntityID:   item.ID,
		Action:     wfdomain.TransitionCreate.String(),
		ActorID:    cmd.ActorID,
		ActorRole:  cmd.ActorRole.String(),
		AfterState: item.Status.String(),
		Timestamp:  now,
	}
	committed, replayed, err := o.store.CommitCreate(ctx, item, rec, cmd.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if replayed {
		return committed, nil
	}

	notify.EmitAsync(o.notifier, &notify.Event{
		ItemID:     committed.ID,
		Action:     rec.Action,
		ToState:    rec.AfterState,
		ActorID:    rec.ActorID,
		ActorRole:  rec.ActorRole,
		OccurredAt: now,
	})
	return committed, nil
}

// History returns the ordered audit entries for one workflow item.
func (o *Orchestrator) History(ctx context.Context, itemID string) ([]*lddomain.Entry, error) {
	return o.ledger.ListByEntity(ctx, lddomain.EntityTypeWorkflowItem, itemID)
}

// VerifyIntegrity walks the whole ledger against a consistent snapshot. On a
// mismatch it opens a persistent integrity alarm, which makes the store
// refuse all further appends until an operator clears it. The result is never
// surfaced to end users.
func (o *Orchestrator) VerifyIntegrity(ctx context.Context) (*ledger.Result, error) {
	res, err := ledger.Verify(ctx, o.ledger)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		seq := uint64(0)
		if res.CorruptedAt != nil {
			seq = *res.CorruptedAt
		}
		log.Printf("orchestrator: ledger corrupted at sequence %d; opening alarm", seq)
		if err := o.ledger.OpenAlarm(ctx, seq, res.Expected, res.Actual, o.nowF()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (o *Orchestrator) record(ctx context.Context, t wfdomain.Transition, err error) {
	if o.commands == nil {
		return
	}
	o.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transition", t.String()),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		denied     *apperr.PermissionDeniedError
		invalid    *apperr.InvalidTransitionError
		conflict   *apperr.ConcurrencyConflictError
		integrity  *apperr.IntegrityViolationError
	)
	switch {
	case errors.As(err, &validation):
		return "validation_error"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &denied):
		return "permission_denied"
	case errors.As(err, &invalid):
		return "invalid_transition"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &integrity):
		return "integrity_violation"
	default:
		return "error"
	}
}
