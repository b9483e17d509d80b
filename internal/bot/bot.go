// Package bot is the dialogue orchestrator: it binds the session store, the
// mode policy and the provider clients into one turn pipeline.
//
// A turn never holds a session lock across a backend call. State is
// snapshotted under the lock, the call runs unlocked, and the reply is
// applied by re-entering the lock, so a slow backend stalls only its own
// user's next turn.
package bot

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alebed/magebot/internal/log"
	"github.com/alebed/magebot/internal/prompt"
	"github.com/alebed/magebot/internal/provider"
	"github.com/alebed/magebot/internal/session"
	"github.com/alebed/magebot/internal/summary"
)

// UnavailableNotice is the fixed reply emitted when a backend call fails.
// Failures never surface raw provider errors to the user.
const UnavailableNotice = "Not available now, please, try again later"

// Result is the outbound payload for one handled utterance.
type Result struct {
	Text  string
	Usage *provider.Usage

	// RecipeComplete is set when a guided-mode reply contained the
	// completion marker and the recipe dialogue state was reset.
	RecipeComplete bool

	// Degraded is set when Text is the unavailability notice rather than a
	// backend reply.
	Degraded bool
}

// Orchestrator handles inbound utterances and commands.
type Orchestrator struct {
	store     *session.Store
	summaries *summary.Store
	providers map[string]provider.Provider
	logger    log.Logger
	tracer    trace.Tracer
}

// New creates an orchestrator. providers is keyed by backend identifier.
func New(store *session.Store, summaries *summary.Store, providers map[string]provider.Provider, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		store:     store,
		summaries: summaries,
		providers: providers,
		logger:    logger,
		tracer:    otel.Tracer("magebot/bot"),
	}
}

// turn is the session snapshot taken under the user lock before the backend
// call. The call itself works only on this copy.
type turn struct {
	mode         prompt.Mode
	backend      string
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt bool
	messages     []provider.Message
}

// HandleUtterance runs one full dialogue turn for userID.
//
// The utterance is appended to the active mode's history even when the
// backend call later fails; only the assistant turn is conditional on
// success.
func (o *Orchestrator) HandleUtterance(ctx context.Context, userID, text string) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "bot.HandleUtterance")
	defer span.End()

	t, err := o.beginTurn(userID, text)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("chat.mode", t.mode.String()),
		attribute.String("chat.backend", t.backend),
		attribute.String("chat.model", t.model),
	)

	reply, err := o.callProvider(ctx, userID, t)
	if err != nil {
		span.SetStatus(codes.Error, "backend call failed")
		o.logger.Error("backend call failed",
			"user_id", userID,
			"backend", t.backend,
			"model", t.model,
			"error", err)
		return &Result{Text: UnavailableNotice, Degraded: true}, nil
	}

	res := &Result{Text: reply.Content, Usage: reply.Usage}
	if applyErr := o.applyReply(userID, t.mode, reply.Content, res); applyErr != nil {
		return nil, applyErr
	}
	return res, nil
}

// beginTurn appends the utterance and snapshots everything the backend call
// needs, all under the user lock.
func (o *Orchestrator) beginTurn(userID, text string) (*turn, error) {
	var t turn
	err := o.store.Do(userID, func(s *session.Session) error {
		s.History().Append(provider.Message{Role: provider.RoleUser, Content: text})

		window := o.store.SubmitWindow()
		if s.Mode == prompt.ModeGuided {
			// Slot filling needs the whole dialogue; capping it would drop
			// answers already collected.
			window = 0
		}

		t = turn{
			mode:         s.Mode,
			backend:      s.Backend,
			model:        s.Model,
			temperature:  s.Temperature,
			maxTokens:    s.MaxTokens,
			systemPrompt: s.SystemPrompt,
			messages:     s.History().ForProvider(window),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (o *Orchestrator) callProvider(ctx context.Context, userID string, t *turn) (*provider.Reply, error) {
	p, ok := o.providers[t.backend]
	if !ok {
		return nil, fmt.Errorf("no client for backend %q", t.backend)
	}

	var system string
	if t.systemPrompt {
		userSummary, err := o.summaries.Get(userID)
		if err != nil {
			// Missing context degrades quality, not availability.
			o.logger.Warn("reading summary failed", "user_id", userID, "error", err)
		}
		system = prompt.Instruction(t.mode, userSummary)
	}

	return p.Send(ctx, provider.ChatRequest{
		System:      system,
		Messages:    t.messages,
		Model:       t.model,
		Temperature: t.temperature,
		MaxTokens:   t.maxTokens,
	})
}

// applyReply re-enters the user lock and records the assistant turn against
// the mode the call was made in, so a concurrent mode switch cannot route
// the reply into the wrong buffer.
func (o *Orchestrator) applyReply(userID string, mode prompt.Mode, reply string, res *Result) error {
	return o.store.Do(userID, func(s *session.Session) error {
		history := s.General
		if mode == prompt.ModeGuided {
			history = s.Recipe
		}
		history.Append(provider.Message{Role: provider.RoleAssistant, Content: reply})

		if mode == prompt.ModeGuided && prompt.RecipeComplete(reply) {
			// The finished dialogue is cleared so a fresh recipe can start;
			// the mode itself persists until the user switches.
			s.Recipe.Clear()
			res.RecipeComplete = true
			o.logger.Info("recipe completed", "user_id", userID)
		}
		return nil
	})
}
