package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Bibleyou/RemoveBG-Pro/internal/model"
	"github.com/Bibleyou/RemoveBG-Pro/internal/remote"
)

var (
	// ErrNoImage means there is nothing to process yet.
	ErrNoImage = errors.New("no image uploaded")
	// ErrBusy means a job is already in flight for this session.
	ErrBusy = errors.New("processing already in progress")
	// ErrSuperseded means the job finished after its image was replaced,
	// so the result was thrown away.
	ErrSuperseded = errors.New("image was replaced while processing")
)

// DefaultTimeout bounds a single remote call when none is configured.
const DefaultTimeout = 60 * time.Second

// Ledger records every remote call for credit monitoring.
// storage.CallRepository implements it.
type Ledger interface {
	Create(ctx context.Context, call *model.ProcessingCall) error
}

// Trigger is a user's request to process the current image.
type Trigger struct {
	Instruction string
}

// Options configures an Orchestrator. Zero values are usable.
type Options struct {
	Timeout  time.Duration
	Messages Messages
	Ledger   Ledger // nil disables the call ledger
}

// Orchestrator drives Store transitions around a remote.Processor.
type Orchestrator struct {
	processor remote.Processor
	timeout   time.Duration
	messages  Messages
	ledger    Ledger
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator for the given adapter.
func NewOrchestrator(processor remote.Processor, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Messages == (Messages{}) {
		opts.Messages = MessagesFor("en")
	}
	return &Orchestrator{
		processor: processor,
		timeout:   opts.Timeout,
		messages:  opts.Messages,
		ledger:    opts.Ledger,
		logger:    logger,
	}
}

// Messages returns the catalog used for status text.
func (o *Orchestrator) Messages() Messages { return o.messages }

// Job is one accepted processing request, pinned to the revision of the
// original image it was started for.
type Job struct {
	o        *Orchestrator
	store    *Store
	original model.DataURI
	revision uint64
	opts     remote.Options
}

// Start checks the single-flight gate and moves the store to Busy.
//
// It returns ErrNoImage or ErrBusy without changing anything. A processor that
// can't run at all (no credential) fails here, synchronously: the store goes
// straight to Failed and Busy is never observed.
func (o *Orchestrator) Start(store *Store, trigger Trigger) (*Job, error) {
	var preflightErr error
	original, rev, err := store.begin(o.messages.Progress, func() (string, error) {
		preflightErr = o.processor.Ready()
		if preflightErr != nil {
			return o.messages.For(preflightErr), preflightErr
		}
		return "", nil
	})
	if err != nil {
		if preflightErr != nil {
			o.logger.Warn("processing refused before any request",
				zap.String("session", store.ID()),
				zap.String("adapter", o.processor.Name()),
				zap.Stringer("kind", remote.KindOf(preflightErr)))
			o.record(context.Background(), store.ID(), remote.KindOf(preflightErr).Outcome(), false, 0)
		}
		return nil, err
	}

	return &Job{
		o:        o,
		store:    store,
		original: original,
		revision: rev,
		opts:     remote.Options{Instruction: trigger.Instruction},
	}, nil
}

// Execute performs the remote call and commits the outcome.
//
// The call runs under the orchestrator timeout and is cancelled if the
// original image is replaced. A result for a replaced image is dropped and
// Execute returns ErrSuperseded; the store is left alone.
func (j *Job) Execute(ctx context.Context) error {
	o := j.o
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if !j.store.attach(j.revision, cancel) {
		return ErrSuperseded
	}

	started := time.Now()
	processed, err := o.processor.Process(ctx, j.original, j.opts)
	elapsed := time.Since(started)

	log := o.logger.With(
		zap.String("session", j.store.ID()),
		zap.String("adapter", o.processor.Name()),
		zap.Duration("elapsed", elapsed),
	)

	if err == nil && processed.IsZero() {
		err = remote.Rejected("no image returned")
	}

	outcome := model.OutcomeSuccess
	if err != nil {
		outcome = remote.KindOf(err).Outcome()
	}

	var applied bool
	if err != nil {
		applied = j.store.fail(j.revision, o.messages.For(err))
	} else {
		applied = j.store.commit(j.revision, processed)
	}

	// The ledger write must not depend on the job context, which is done by now
	// when the call timed out.
	o.record(context.WithoutCancel(ctx), j.store.ID(), outcome, !applied, elapsed)

	if !applied {
		log.Info("discarding result for a replaced image", zap.String("outcome", string(outcome)))
		return ErrSuperseded
	}
	if err != nil {
		log.Warn("processing failed", zap.Stringer("kind", remote.KindOf(err)), zap.Error(err))
		return err
	}

	log.Info("processing succeeded")
	return nil
}

// Run is Start followed by Execute on the caller's goroutine.
func (o *Orchestrator) Run(ctx context.Context, store *Store, trigger Trigger) error {
	job, err := o.Start(store, trigger)
	if err != nil {
		return err
	}
	return job.Execute(ctx)
}

func (o *Orchestrator) record(ctx context.Context, sessionID string, outcome model.CallOutcome, stale bool, elapsed time.Duration) {
	if o.ledger == nil {
		return
	}
	call := &model.ProcessingCall{
		SessionID:  sessionID,
		Adapter:    o.processor.Name(),
		Outcome:    outcome,
		Stale:      stale,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.ledger.Create(ctx, call); err != nil {
		// Losing a ledger row must never fail the user's request.
		o.logger.Error("failed to record processing call", zap.Error(err))
	}
}
