package ledgerfeed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/haileyok/ledgerfeed/ledger"
)

type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateBuilding
	StateSubmitted
	StateConfirmed
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Active reports whether a submission in this state has not finished yet.
// Callers should not start another submission while it is true.
func (s SubmissionState) Active() bool {
	return s == StateBuilding || s == StateSubmitted
}

var transitions = map[SubmissionState][]SubmissionState{
	StateIdle:      {StateBuilding},
	StateBuilding:  {StateSubmitted},
	StateSubmitted: {StateConfirmed, StateFailed},
	StateConfirmed: {StateBuilding},
	StateFailed:    {StateBuilding},
}

func canTransition(from, to SubmissionState) bool {
	return slices.Contains(transitions[from], to)
}

// Submission is a snapshot of the tracked write.
type Submission struct {
	ID         string
	EntryPoint string
	State      SubmissionState
	Digest     string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Submitter drives one write at a time through
// Idle -> Building -> Submitted -> Confirmed|Failed. It never retries; a
// retry is a new Submit.
type Submitter struct {
	logger       *slog.Logger
	cfg          Config
	ledger       Ledger
	wallet       Wallet
	store        *Store
	onTransition func(Submission)

	mu      sync.Mutex
	current Submission
}

type SubmitterArgs struct {
	Logger *slog.Logger
	Config Config
	Ledger Ledger
	Wallet Wallet
	// Store is refreshed after every confirmed submission.
	Store *Store
	// OnTransition, if set, is called with a snapshot after every state
	// change. It must not call back into the Submitter.
	OnTransition func(Submission)
}

func NewSubmitter(args SubmitterArgs) *Submitter {
	if args.Logger == nil {
		args.Logger = slog.Default()
	}

	return &Submitter{
		logger:       args.Logger,
		cfg:          args.Config,
		ledger:       args.Ledger,
		wallet:       args.Wallet,
		store:        args.Store,
		onTransition: args.OnTransition,
	}
}

// Status returns the current submission.
func (s *Submitter) Status() Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Submit builds, submits and tracks call. A confirmed submission returns
// after the settle delay and cache refresh. A failed one returns a
// *WriteError which is also kept in Status until the next Submit.
func (s *Submitter) Submit(ctx context.Context, call *ledger.MoveCall) (Submission, error) {
	if s.wallet == nil {
		return s.Status(), ErrNoWallet
	}
	if call == nil {
		return s.Status(), ErrInvalidCall
	}
	// malformed calls never reach the wallet and leave the state untouched
	if err := call.Validate(); err != nil {
		return s.Status(), fmt.Errorf("%w: %w", ErrInvalidCall, err)
	}

	if err := s.begin(call.Function); err != nil {
		return s.Status(), err
	}

	logger := s.logger.With("submission", s.Status().ID, "entry_point", call.Function)
	logger.Info("building call", "target", call.Target(), "args", len(call.Arguments))

	s.transition(StateSubmitted, nil)

	digest, err := s.wallet.SignAndExecute(ctx, call)
	if err != nil {
		return s.fail(logger, err)
	}

	s.mu.Lock()
	s.current.Digest = digest
	s.mu.Unlock()

	logger.Info("submitted, waiting for finality", "digest", digest)

	tx, err := s.ledger.WaitForTransaction(ctx, digest)
	if err != nil {
		return s.fail(logger, err)
	}
	if !tx.Succeeded() {
		return s.fail(logger, &ExecutionError{Status: tx.Failure()})
	}

	if err := sleepCtx(ctx, s.cfg.SettleDelay); err != nil {
		logger.Warn("settle delay interrupted, skipping refresh", "error", err)
	} else if s.store != nil {
		s.store.Refresh(ctx)
	}

	s.transition(StateConfirmed, nil)
	logger.Info("submission confirmed", "digest", digest)

	return s.Status(), nil
}

// begin starts a new submission in Building, clearing any previous error.
func (s *Submitter) begin(entryPoint string) error {
	s.mu.Lock()
	if s.current.State.Active() {
		s.mu.Unlock()
		return ErrSubmissionInFlight
	}
	if !canTransition(s.current.State, StateBuilding) {
		s.mu.Unlock()
		return fmt.Errorf("cannot start a submission from %s", s.current.State)
	}

	s.current = Submission{
		ID:         uuid.NewString(),
		EntryPoint: entryPoint,
		State:      StateBuilding,
		StartedAt:  time.Now(),
	}
	snap := s.current
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

func (s *Submitter) transition(to SubmissionState, err error) Submission {
	s.mu.Lock()
	from := s.current.State
	if !canTransition(from, to) {
		s.mu.Unlock()
		panic(fmt.Sprintf("invalid submission transition %s -> %s", from, to))
	}

	s.current.State = to
	s.current.Err = err
	if to == StateConfirmed || to == StateFailed {
		s.current.FinishedAt = time.Now()
		submissions.WithLabelValues(s.current.EntryPoint, to.String()).Inc()
		submissionDuration.WithLabelValues(s.current.EntryPoint).Observe(s.current.FinishedAt.Sub(s.current.StartedAt).Seconds())
	}
	snap := s.current
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Submitter) fail(logger *slog.Logger, err error) (Submission, error) {
	s.mu.Lock()
	werr := &WriteError{
		EntryPoint: s.current.EntryPoint,
		Digest:     s.current.Digest,
		Err:        err,
	}
	s.mu.Unlock()

	logger.Error("submission failed", "error", werr)
	return s.transition(StateFailed, werr), werr
}

func (s *Submitter) notify(snap Submission) {
	if s.onTransition != nil {
		s.onTransition(snap)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Submitter) CreateProfile(ctx context.Context, username, bio string) (Submission, error) {
	return s.Submit(ctx, NewCreateProfileCall(s.cfg, username, bio))
}

func (s *Submitter) UpdateProfile(ctx context.Context, profileID, username, bio string) (Submission, error) {
	return s.Submit(ctx, NewUpdateProfileCall(s.cfg, profileID, username, bio))
}

func (s *Submitter) CreatePost(ctx context.Context, profileID, content string) (Submission, error) {
	return s.Submit(ctx, NewCreatePostCall(s.cfg, profileID, content))
}

func (s *Submitter) LikePost(ctx context.Context, postID string) (Submission, error) {
	return s.Submit(ctx, NewLikePostCall(s.cfg, postID))
}

func (s *Submitter) UnlikePost(ctx context.Context, postID string) (Submission, error) {
	return s.Submit(ctx, NewUnlikePostCall(s.cfg, postID))
}

func (s *Submitter) CreateComment(ctx context.Context, postID, content string) (Submission, error) {
	return s.Submit(ctx, NewCreateCommentCall(s.cfg, postID, content))
}

func (s *Submitter) FollowUser(ctx context.Context, profileID, target string) (Submission, error) {
	return s.Submit(ctx, NewFollowUserCall(s.cfg, profileID, target))
}

func (s *Submitter) SharePost(ctx context.Context, postID, recipient string) (Submission, error) {
	return s.Submit(ctx, NewSharePostCall(s.cfg, postID, recipient))
}
