// Package agent runs one chat turn: it assembles the system prompt, the
// user's recent history and the new message, lets the Eino ReAct loop call
// the sommelier tools, and persists the exchange.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/sommelier-go/internal/budget"
	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/store"
	"github.com/54b3r/sommelier-go/internal/tools"
)

// Apology is shown to the user when a turn fails.
const Apology = "Произошла ошибка при обработке запроса. Попробуйте ещё раз."

const (
	// DefaultMaxToolIterations caps tool calls per turn.
	DefaultMaxToolIterations = 10

	// DefaultTurnTimeout bounds a whole turn.
	DefaultTurnTimeout = 2 * time.Minute
)

// Config holds the dependencies required to construct a Sommelier.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Tools are the retrieval and cart tools the model may call.
	Tools []tools.RetrievalTool

	// History persists turns per user. If nil, each turn is stateless.
	History store.ConversationStore

	// HistoryWindow is the number of prior messages replayed per turn.
	// Defaults to budget.DefaultHistoryWindow.
	HistoryWindow int

	// MaxContextTokens is the estimated input budget; history is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int

	// MaxToolIterations caps tool calls per turn. Defaults to 10.
	MaxToolIterations int

	// TurnTimeout bounds a whole turn. Defaults to 2m.
	TurnTimeout time.Duration
}

// Sommelier is the wine assistant agent. It is safe for concurrent use by
// different users; callers serialise turns of the same user.
type Sommelier struct {
	// reactAgent is the underlying Eino ReAct loop.
	reactAgent *react.Agent

	// history is the optional per-user conversation store.
	history store.ConversationStore

	// historyWindow is the number of prior messages replayed per turn.
	historyWindow int

	// maxContextTokens is the estimated input token budget.
	maxContextTokens int

	// turnTimeout bounds a whole turn.
	turnTimeout time.Duration
}

// New constructs a Sommelier from cfg.
func New(ctx context.Context, cfg *Config) (*Sommelier, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}

	iters := cfg.MaxToolIterations
	if iters <= 0 {
		iters = DefaultMaxToolIterations
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools.BaseTools(cfg.Tools),
		},
		// Each iteration is a model step plus a tools step; the final answer
		// is one more model step.
		MaxStep: 2*iters + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	window := cfg.HistoryWindow
	if window <= 0 {
		window = budget.DefaultHistoryWindow
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = DefaultTurnTimeout
	}

	return &Sommelier{
		reactAgent:       reactAgent,
		history:          cfg.History,
		historyWindow:    window,
		maxContextTokens: maxCtx,
		turnTimeout:      timeout,
	}, nil
}

// Reply runs one turn for userID and returns the assistant's final text.
func (a *Sommelier) Reply(ctx context.Context, userID int64, text string) (string, error) {
	ctx, cancel := a.turnContext(ctx, userID)
	defer cancel()

	messages := a.buildMessages(ctx, userID, text)
	msg, err := a.reactAgent.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("agent: generate failed: %w", err)
	}

	a.remember(ctx, userID, text, msg.Content)
	return msg.Content, nil
}

// Stream runs one turn for userID and writes the final answer to w as it is
// produced.
func (a *Sommelier) Stream(ctx context.Context, userID int64, text string, w io.Writer) error {
	ctx, cancel := a.turnContext(ctx, userID)
	defer cancel()

	messages := a.buildMessages(ctx, userID, text)
	sr, err := a.reactAgent.Stream(ctx, messages)
	if err != nil {
		return fmt.Errorf("agent: stream failed: %w", err)
	}
	defer sr.Close()

	var reply strings.Builder
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("agent: stream receive error: %w", err)
		}
		if msg == nil || msg.Content == "" {
			continue
		}
		reply.WriteString(msg.Content)
		if _, err := io.WriteString(w, msg.Content); err != nil {
			return fmt.Errorf("agent: write error: %w", err)
		}
	}

	a.remember(ctx, userID, text, reply.String())
	return nil
}

// turnContext bounds the turn and attaches the user to the context for the
// cart tool and for logging.
func (a *Sommelier) turnContext(ctx context.Context, userID int64) (context.Context, context.CancelFunc) {
	ctx = logging.ForUser(ctx, userID)
	ctx = tools.WithUserID(ctx, userID)
	return context.WithTimeout(ctx, a.turnTimeout)
}

// remember persists the turn. Failures are logged, not returned: the user
// already has an answer.
func (a *Sommelier) remember(ctx context.Context, userID int64, userText, reply string) {
	if a.history == nil {
		return
	}
	log := logging.FromContext(ctx)
	if err := a.history.Append(ctx, userID, store.RoleUser, userText); err != nil {
		log.Warn("history: failed to persist user message", slog.Any("error", err))
		return
	}
	if err := a.history.Append(ctx, userID, store.RoleAssistant, reply); err != nil {
		log.Warn("history: failed to persist assistant message", slog.Any("error", err))
	}
}

// buildMessages returns [system, ...history, user]. History is cut to the
// window and then trimmed to the token budget.
func (a *Sommelier) buildMessages(ctx context.Context, userID int64, text string) []*schema.Message {
	system := schema.SystemMessage(systemPrompt)
	user := schema.UserMessage(text)

	var history []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, userID, a.historyWindow)
		if err != nil {
			logging.FromContext(ctx).Warn("history: failed to load prior messages", slog.Any("error", err))
		}
		for _, m := range prior {
			switch m.Role {
			case store.RoleUser:
				history = append(history, schema.UserMessage(m.Content))
			case store.RoleAssistant:
				history = append(history, schema.AssistantMessage(m.Content, nil))
			}
		}
	}

	history = budget.Window(history, a.historyWindow)
	before := len(history)
	history = budget.TrimHistory([]*schema.Message{system, user}, history, a.maxContextTokens)
	if dropped := before - len(history); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, system)
	messages = append(messages, history...)
	return append(messages, user)
}
