package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"campus-market/internal/domain"
	"campus-market/internal/market"
	"campus-market/internal/observability"
)

var (
	ErrActionInFlight  = errors.New("the same action is already in progress")
	ErrTokensExhausted = errors.New("no anti-forgery token was accepted")
)

// Operation is one logical state-changing call. Attempt is invoked once per
// anti-forgery token, strictly in order, until one of them settles the
// outcome.
type Operation struct {
	// Name labels logs and metrics.
	Name string
	// Key identifies the logical action for the re-entrancy guard. Empty
	// disables the guard.
	Key string
	// ItemIDs are marked in flight for the duration of the call.
	ItemIDs []string
	Attempt func(ctx context.Context, token string) error
	// AfterSuccess runs after a success unless ctx is already done.
	AfterSuccess func(ctx context.Context)
	// SuccessMessage overrides MsgDone.
	SuccessMessage string
	// EndsSession marks an operation whose caller drops local state itself
	// once it returns. The executor then leaves the session store alone
	// and never asks for a reload.
	EndsSession bool
}

type attemptResult int

const (
	attemptAccepted attemptResult = iota
	attemptRejected
	attemptForbidden
	attemptExpired
)

func (r attemptResult) String() string {
	switch r {
	case attemptAccepted:
		return "accepted"
	case attemptForbidden:
		return "forbidden"
	case attemptExpired:
		return "expired"
	}
	return "rejected"
}

// classify maps an attempt error onto what the executor does next. Only a
// 401, or a 403 that is not about the anti-forgery token, stops the loop.
func classify(err error) attemptResult {
	if err == nil {
		return attemptAccepted
	}
	var apiErr *market.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return attemptExpired
		case apiErr.StatusCode == http.StatusForbidden && !apiErr.CSRFRejected():
			return attemptForbidden
		}
	}
	return attemptRejected
}

// MutationExecutor runs state-changing calls against the API, trying every
// anti-forgery token the jar holds and reducing the result to one Outcome
// and one Notification.
type MutationExecutor struct {
	api      MarketAPI
	tokens   TokenSource
	sessions domain.SessionStore
	state    *ListingsState
	notifier Notifier

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewMutationExecutor creates an executor. state may be nil when no
// listings view needs refreshing.
func NewMutationExecutor(api MarketAPI, tokens TokenSource, sessions domain.SessionStore, state *ListingsState, notifier Notifier) *MutationExecutor {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &MutationExecutor{
		api:      api,
		tokens:   tokens,
		sessions: sessions,
		state:    state,
		notifier: notifier,
		pending:  make(map[string]struct{}),
	}
}

// Execute runs a listing mutation. A non-nil error means nothing was sent:
// either req is malformed or the same action is still in flight.
func (e *MutationExecutor) Execute(ctx context.Context, req domain.MutationRequest) (domain.Outcome, error) {
	if err := req.Validate(); err != nil {
		return domain.OutcomeNone, err
	}

	op := Operation{
		Name:           string(req.Method),
		Key:            req.Key(),
		ItemIDs:        req.TargetIDs,
		Attempt:        e.attemptFor(req),
		SuccessMessage: successMessages[req.Method],
	}
	if e.state != nil {
		op.AfterSuccess = func(ctx context.Context) {
			if err := e.state.Refresh(ctx); err != nil {
				observability.FromContext(ctx).Warn("Refetch after mutation failed",
					slog.String("operation", op.Name),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return e.Do(ctx, op)
}

func (e *MutationExecutor) attemptFor(req domain.MutationRequest) func(ctx context.Context, token string) error {
	switch req.Method {
	case domain.MethodCreate:
		form := req.Payload.(*domain.ListingForm)
		return func(ctx context.Context, token string) error {
			_, err := e.api.SubmitListing(ctx, token, "", form)
			return err
		}
	case domain.MethodUpdate:
		form := req.Payload.(*domain.ListingForm)
		id := req.TargetIDs[0]
		return func(ctx context.Context, token string) error {
			_, err := e.api.SubmitListing(ctx, token, id, form)
			return err
		}
	default:
		ids := append([]string(nil), req.TargetIDs...)
		return func(ctx context.Context, token string) error {
			return e.api.BatchMutate(ctx, token, req.Method, ids)
		}
	}
}

// Do runs op. See Execute for the meaning of a non-nil error.
func (e *MutationExecutor) Do(ctx context.Context, op Operation) (domain.Outcome, error) {
	if op.Attempt == nil {
		return domain.OutcomeNone, domain.ErrInvalidInput
	}
	if !e.begin(op.Key) {
		return domain.OutcomeNone, ErrActionInFlight
	}
	defer e.end(op.Key)

	if e.state != nil {
		e.state.markInFlight(op.ItemIDs)
		defer e.state.clearInFlight(op.ItemIDs)
	}

	logger := observability.FromContext(ctx).With(slog.String("operation", op.Name))

	outcome, finish := e.run(ctx, op, logger)
	result := outcome.String()
	if finish == runCancelled {
		result = "cancelled"
	}
	observability.MutationOutcomesTotal.WithLabelValues(op.Name, result).Inc()

	n := Notification{Operation: op.Name, Outcome: outcome, Level: LevelError}
	switch outcome {
	case domain.OutcomeSuccess:
		if op.AfterSuccess != nil && ctx.Err() == nil {
			op.AfterSuccess(ctx)
		}
		n.Level = LevelSuccess
		n.Message = op.SuccessMessage
		if n.Message == "" {
			n.Message = MsgDone
		}
	case domain.OutcomeUnauthorized:
		n.Message = MsgUnauthorized
	case domain.OutcomeSessionExpired:
		n.Message = MsgSessionExpired
		if !op.EndsSession {
			e.clearSession(logger, "session_expired")
			n.Reload = true
		}
	case domain.OutcomeExhausted:
		if finish == runNoTokens {
			n.Message = MsgNoTokens
			if !op.EndsSession {
				e.clearSession(logger, "no_tokens")
				n.Reload = true
			}
		} else {
			n.Message = MsgFailed
		}
	}

	logger.Info("Mutation finished", slog.String("outcome", result))
	if ctx.Err() != nil {
		// The caller is gone; there is no view left to notify.
		return outcome, nil
	}
	e.notifier.Notify(n)
	return outcome, nil
}

// runEnd tells apart the ways run can finish with OutcomeExhausted.
type runEnd int

const (
	runDone runEnd = iota
	runNoTokens
	runCancelled
)

// run tries each token in order.
func (e *MutationExecutor) run(ctx context.Context, op Operation, logger *slog.Logger) (domain.Outcome, runEnd) {
	// Tokens are read here, never earlier: the jar may have rotated them.
	tokens := e.tokens.Resolve()
	if len(tokens) == 0 {
		logger.Warn("No anti-forgery tokens available")
		return domain.OutcomeExhausted, runNoTokens
	}

	for i, token := range tokens {
		if ctx.Err() != nil {
			break
		}

		err := op.Attempt(ctx, token)
		result := classify(err)
		observability.MutationAttemptsTotal.WithLabelValues(op.Name, result.String()).Inc()

		switch result {
		case attemptAccepted:
			return domain.OutcomeSuccess, runDone
		case attemptExpired:
			logger.Warn("Session rejected by server", slog.Int("attempt", i+1))
			return domain.OutcomeSessionExpired, runDone
		case attemptForbidden:
			logger.Warn("Action forbidden by server", slog.Int("attempt", i+1), slog.String("error", err.Error()))
			return domain.OutcomeUnauthorized, runDone
		default:
			logger.Debug("Token attempt failed",
				slog.Int("attempt", i+1),
				slog.Int("of", len(tokens)),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("Mutation cancelled", slog.String("error", err.Error()))
		return domain.OutcomeExhausted, runCancelled
	}

	logger.Warn("All anti-forgery tokens failed",
		slog.Int("tokens", len(tokens)),
		slog.String("error", ErrTokensExhausted.Error()),
	)
	return domain.OutcomeExhausted, runDone
}

func (e *MutationExecutor) clearSession(logger *slog.Logger, reason string) {
	observability.SessionClearsTotal.WithLabelValues(reason).Inc()
	if err := e.sessions.Clear(); err != nil {
		logger.Error("Failed to clear session", slog.String("reason", reason), slog.String("error", err.Error()))
		return
	}
	logger.Info("Session cleared", slog.String("reason", reason))
}

func (e *MutationExecutor) begin(key string) bool {
	if key == "" {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.pending[key]; busy {
		return false
	}
	e.pending[key] = struct{}{}
	return true
}

func (e *MutationExecutor) end(key string) {
	if key == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, key)
}
