// Package flow submits write actions, waits for their confirmation and makes the
// affected read models stale once they land.
package flow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/equifund/backend/internal/chain"
	"github.com/equifund/backend/internal/events"
	"github.com/equifund/backend/internal/metrics"
	"github.com/equifund/backend/internal/models"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInFlight = errors.New("action already in flight")

// ActionFailedError carries the remote message unchanged for display.
type ActionFailedError struct {
	Kind    string
	Message string
	Err     error
}

func (e *ActionFailedError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Kind, e.Message)
}

func (e *ActionFailedError) Unwrap() error {
	return e.Err
}

type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

type Confirmer interface {
	WaitConfirmed(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context, prefixes ...string) error
}

// Journal records every attempt. Create is called once per attempt, Finish on its outcome.
type Journal interface {
	Create(ctx context.Context, rec *models.ActionRecord) error
	Finish(ctx context.Context, rec *models.ActionRecord) error
}

// Action is one state-changing call.
type Action struct {
	Kind   string
	Actor  common.Address
	Target *common.Address
	Amount *big.Int
	Submit func(opts *bind.TransactOpts) (*types.Transaction, error)
	// Invalidates lists the cache prefixes made stale on success.
	Invalidates []string
}

type Orchestrator struct {
	signer      Signer
	confirmer   Confirmer
	invalidator Invalidator
	journal     Journal
	publisher   events.Publisher
	log         *zap.Logger

	mu     sync.Mutex
	states map[string]string
}

// NewOrchestrator accepts a nil journal or publisher; those steps are then skipped.
func NewOrchestrator(signer Signer, confirmer Confirmer, invalidator Invalidator, journal Journal, publisher events.Publisher, log *zap.Logger) *Orchestrator {
	states := make(map[string]string, len(models.AllActions))
	for _, k := range models.AllActions {
		states[k] = models.ActionStateIdle
	}
	return &Orchestrator{
		signer:      signer,
		confirmer:   confirmer,
		invalidator: invalidator,
		journal:     journal,
		publisher:   publisher,
		log:         log,
		states:      states,
	}
}

// States snapshots the current state of every action kind.
func (o *Orchestrator) States() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.states))
	for k, v := range o.states {
		out[k] = v
	}
	return out
}

func (o *Orchestrator) State(kind string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[kind]; ok {
		return s
	}
	return models.ActionStateIdle
}

func (o *Orchestrator) transition(kind, to string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	from, ok := o.states[kind]
	if !ok {
		from = models.ActionStateIdle
	}
	if !models.IsValidTransition(from, to) {
		if to == models.ActionStateSubmitting {
			return fmt.Errorf("%w: %s is %s", ErrInFlight, kind, from)
		}
		return fmt.Errorf("invalid transition %s -> %s for %s", from, to, kind)
	}
	o.states[kind] = to
	return nil
}

// Run submits the action and blocks until it is confirmed or fails. On failure the
// returned error is an *ActionFailedError and the kind is idle again.
func (o *Orchestrator) Run(ctx context.Context, a Action) (models.ActionRecord, error) {
	if err := o.transition(a.Kind, models.ActionStateSubmitting); err != nil {
		return models.ActionRecord{}, err
	}

	now := time.Now().UTC()
	rec := models.ActionRecord{
		ID:        uuid.New(),
		Kind:      a.Kind,
		Actor:     a.Actor.Hex(),
		State:     models.ActionStateSubmitting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Target != nil {
		t := a.Target.Hex()
		rec.Target = &t
	}
	if a.Amount != nil {
		amt := a.Amount.String()
		rec.Amount = &amt
	}
	if o.journal != nil {
		if err := o.journal.Create(ctx, &rec); err != nil {
			o.log.Warn("journal create failed", zap.String("kind", a.Kind), zap.Error(err))
		}
	}

	log := o.log.With(zap.String("action_id", rec.ID.String()), zap.String("kind", a.Kind))

	opts, err := o.signer.TransactOpts(ctx)
	if err != nil {
		return o.fail(ctx, log, &rec, err)
	}
	tx, err := a.Submit(opts)
	if err != nil {
		return o.fail(ctx, log, &rec, err)
	}

	hash := tx.Hash().Hex()
	rec.TxHash = &hash
	if err := o.transition(a.Kind, models.ActionStateAwaitingConfirmation); err != nil {
		return o.fail(ctx, log, &rec, err)
	}
	rec.State = models.ActionStateAwaitingConfirmation
	log.Info("transaction submitted", zap.String("tx_hash", hash))
	o.publish(ctx, events.EventActionSubmitted, &rec, nil)

	receipt, err := o.confirmer.WaitConfirmed(ctx, tx)
	if err != nil {
		return o.fail(ctx, log, &rec, err)
	}

	if receipt != nil && receipt.BlockNumber != nil {
		block := receipt.BlockNumber.Uint64()
		rec.BlockNumber = &block
	}
	return o.succeed(ctx, log, &rec, a.Invalidates)
}

func (o *Orchestrator) succeed(ctx context.Context, log *zap.Logger, rec *models.ActionRecord, prefixes []string) (models.ActionRecord, error) {
	_ = o.transition(rec.Kind, models.ActionStateSucceeded)
	rec.State = models.ActionStateSucceeded
	rec.UpdatedAt = time.Now().UTC()

	if len(prefixes) > 0 {
		// Invalidation outlives a cancelled request.
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := o.invalidator.Invalidate(ictx, prefixes...); err != nil {
			log.Warn("cache invalidation failed", zap.Strings("prefixes", prefixes), zap.Error(err))
		}
		cancel()
	}

	o.finish(ctx, log, rec)
	o.publish(ctx, events.EventActionSucceeded, rec, prefixes)
	metrics.Actions.WithLabelValues(rec.Kind, rec.State).Inc()
	log.Info("action confirmed")

	_ = o.transition(rec.Kind, models.ActionStateIdle)
	return *rec, nil
}

func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, rec *models.ActionRecord, cause error) (models.ActionRecord, error) {
	o.mu.Lock()
	o.states[rec.Kind] = models.ActionStateFailed
	o.mu.Unlock()

	msg := chain.Reason(cause)
	rec.State = models.ActionStateFailed
	rec.Error = &msg
	rec.UpdatedAt = time.Now().UTC()

	o.finish(ctx, log, rec)
	o.publish(ctx, events.EventActionFailed, rec, nil)
	metrics.Actions.WithLabelValues(rec.Kind, rec.State).Inc()
	log.Warn("action failed", zap.Error(cause))

	_ = o.transition(rec.Kind, models.ActionStateIdle)
	return *rec, &ActionFailedError{Kind: rec.Kind, Message: msg, Err: cause}
}

func (o *Orchestrator) finish(ctx context.Context, log *zap.Logger, rec *models.ActionRecord) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Finish(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn("journal finish failed", zap.Error(err))
	}
}

func (o *Orchestrator) publish(ctx context.Context, typ string, rec *models.ActionRecord, prefixes []string) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"id":    rec.ID.String(),
		"kind":  rec.Kind,
		"actor": rec.Actor,
		"state": rec.State,
	}
	if rec.TxHash != nil {
		payload["tx_hash"] = *rec.TxHash
	}
	if rec.Error != nil {
		payload["error"] = *rec.Error
	}
	if len(prefixes) > 0 {
		payload["invalidate"] = prefixes
	}
	if err := o.publisher.Publish(context.WithoutCancel(ctx), events.StreamActions, events.Event{Type: typ, Payload: payload}); err != nil {
		o.log.Warn("failed to publish action event", zap.String("type", typ), zap.Error(err))
	}
}
