// Package chat orchestrates streaming conversation turns. A Runner
// reconciles the asynchronous stream of text deltas, inline images, and
// errors into the session store, so every consumer observes one
// consistent conversation state.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/gemini"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/core/types"
	"github.com/davipietrooliveira04-del/Gemini-pulse/pkg/store"
)

// Streamer opens a streaming generation request.
// *gemini.Provider satisfies this.
type Streamer interface {
	Stream(ctx context.Context, req *types.GenerateRequest) (gemini.EventStream, error)
}

// Callbacks let the caller render a turn live without the runner
// knowing anything about presentation. All fields are optional.
type Callbacks struct {
	// OnDelta is called for each text fragment as it arrives.
	OnDelta func(text string)

	// OnImage is called for each inline image as it arrives.
	OnImage func(img types.ImageBlock)

	// OnDone is called with the final persisted model message.
	OnDone func(msg types.Message)
}

// Runner drives streaming turns against a session store.
type Runner struct {
	store    *store.Store
	provider Streamer
	logger   *slog.Logger

	system    string
	maxTokens int
	model     string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSystem sets the system instruction for every turn.
func WithSystem(system string) RunnerOption {
	return func(r *Runner) { r.system = system }
}

// WithMaxTokens caps response length.
func WithMaxTokens(n int) RunnerOption {
	return func(r *Runner) { r.maxTokens = n }
}

// WithDefaultModel sets the model used when a session has none.
func WithDefaultModel(model string) RunnerOption {
	return func(r *Runner) { r.model = model }
}

// NewRunner creates a Runner over the given store and provider.
func NewRunner(st *store.Store, provider Streamer, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    st,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StreamTurn runs one conversation turn: the user message is persisted,
// a model stream is opened over the session history, and every delta is
// reduced into the store as it arrives. On success it returns the final
// model message. On failure the partial model message is kept, marked
// failed, and the stream error is returned. Cancelling the context
// stops the stream the same way; partial text survives.
func (r *Runner) StreamTurn(ctx context.Context, sessionID string, userMsg types.Message, cb Callbacks) (types.Message, error) {
	if _, err := r.store.AppendMessage(sessionID, userMsg); err != nil {
		return types.Message{}, err
	}

	session, err := r.store.Get(sessionID)
	if err != nil {
		return types.Message{}, err
	}

	model := session.Model
	if model == "" {
		model = r.model
	}

	stream, err := r.provider.Stream(ctx, &types.GenerateRequest{
		Model:     model,
		System:    r.system,
		Messages:  session.Messages,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return types.Message{}, err
	}
	defer stream.Close()

	placeholder, err := r.store.AppendMessage(sessionID, types.Message{Role: types.RoleModel})
	if err != nil {
		return types.Message{}, err
	}

	r.logger.Debug("turn started", "session_id", sessionID, "model", model)

	// Mirror of everything reduced into the store, used to rebuild the
	// trailing message when the stream fails mid-flight.
	final := placeholder
	appendText := func(text string) {
		if n := len(final.Content); n > 0 {
			if tb, ok := final.Content[n-1].(types.TextBlock); ok {
				tb.Text += text
				final.Content[n-1] = tb
				return
			}
		}
		final.Content = append(final.Content, types.Text(text))
	}

	for {
		event, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.reconcileFailure(ctx, sessionID, final, err)
		}

		switch e := event.(type) {
		case types.TextDeltaEvent:
			if e.Text == "" {
				continue
			}
			if err := r.store.AppendTextDelta(sessionID, e.Text); err != nil {
				return final, err
			}
			appendText(e.Text)
			if cb.OnDelta != nil {
				cb.OnDelta(e.Text)
			}

		case types.ContentBlockStartEvent:
			img, ok := e.Block.(types.ImageBlock)
			if !ok {
				continue
			}
			if err := r.store.AttachImage(sessionID, img); err != nil {
				return final, err
			}
			final.Content = append(final.Content, img)
			if cb.OnImage != nil {
				cb.OnImage(img)
			}

		case types.MessageDeltaEvent:
			final.StopReason = e.StopReason
			if !e.Usage.IsEmpty() {
				usage := e.Usage
				final.Usage = &usage
			}
		}
	}

	if final.StopReason == "" {
		final.StopReason = types.StopReasonEndTurn
	}
	if err := r.store.FinishTrailing(sessionID, final.StopReason, final.Usage); err != nil {
		return final, err
	}

	r.logger.Debug("turn complete",
		"session_id", sessionID,
		"stop_reason", final.StopReason,
	)
	if cb.OnDone != nil {
		cb.OnDone(final)
	}
	return final, nil
}

// reconcileFailure rewrites the trailing placeholder as a failed model
// message, keeping any partial content already streamed.
func (r *Runner) reconcileFailure(ctx context.Context, sessionID string, partial types.Message, streamErr error) (types.Message, error) {
	partial.Failed = true
	if ctx.Err() != nil {
		partial.StopReason = types.StopReasonCancelled
	}
	if err := r.store.ReplaceLast(sessionID, partial); err != nil {
		r.logger.Error("failed to reconcile aborted turn", "session_id", sessionID, "error", err)
	}
	r.logger.Debug("turn failed", "session_id", sessionID, "error", streamErr)
	return partial, streamErr
}
