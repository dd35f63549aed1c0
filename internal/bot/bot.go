// Package bot is the Telegram chat transport: it long-polls for updates,
// answers cart commands directly and hands free text to the agent.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/sommelier-go/internal/agent"
	"github.com/54b3r/sommelier-go/internal/logging"
	"github.com/54b3r/sommelier-go/internal/throttle"
	"github.com/54b3r/sommelier-go/internal/userlock"
)

// User-facing strings.
const (
	MsgGreeting = "Привет! Я винный ассистент. Спросите о винах!"
	MsgThinking = "Сомелье в раздумье..."
	MsgSlowDown = "Слишком много сообщений. Подождите немного и спросите снова."
)

const (
	// MaxMessageLength is Telegram's limit on message text.
	MaxMessageLength = 4096
	truncationSuffix = "..."

	pollTimeoutSeconds = 30
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Agent answers one user turn.
type Agent interface {
	Reply(ctx context.Context, userID int64, text string) (string, error)
}

// Cart is the subset of cart.Store behind the cart commands.
type Cart interface {
	Show(userID int64) string
	Clear(userID int64) string
}

// Bot routes Telegram updates. Turns of different users run concurrently;
// turns of the same user are serialised.
type Bot struct {
	api   API
	agent Agent
	cart  Cart
	log   *slog.Logger

	locks    *userlock.Set
	throttle *throttle.Limiter
	turns    *prometheus.CounterVec
	wg       sync.WaitGroup
}

// New returns a Bot. reg may be nil to skip metrics registration.
func New(api API, a Agent, c Cart, log *slog.Logger, reg prometheus.Registerer) *Bot {
	if log == nil {
		log = slog.Default()
	}
	turns := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "sommelier_bot_turns_total",
		Help: "Telegram messages handled, by kind and outcome.",
	}, []string{"kind", "outcome"})
	return &Bot{
		api:   api,
		agent: a,
		cart:  c,
		log:   log,
		locks: userlock.New(),
		turns: turns,
	}
}

// WithThrottle limits how fast each user may start agent turns. Commands
// are never throttled. It returns b.
func (b *Bot) WithThrottle(l *throttle.Limiter) *Bot {
	b.throttle = l
	return b
}

// NewAPI connects to Telegram with token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot: failed to create Telegram client: %w", err)
	}
	return api, nil
}

// Run drops pending updates and long-polls until ctx is cancelled. It waits
// for in-flight turns before returning.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("bot: failed to drop pending updates: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot: polling for updates")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot: stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			msg := update.Message
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(ctx, msg)
			}()
		}
	}
}

// handle processes one incoming message.
func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}
	ctx = logging.WithLogger(ctx, b.log)
	ctx = logging.ForUser(ctx, userID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.command(ctx, chatID, "start", MsgGreeting)
			return
		case "show_cart":
			b.command(ctx, chatID, "show_cart", b.cart.Show(userID))
			return
		case "clear_cart":
			b.command(ctx, chatID, "clear_cart", b.cart.Clear(userID))
			return
		}
		logging.FromContext(ctx).Debug("bot: unknown command ignored", slog.String("command", msg.Command()))
		return
	}
	if msg.Text == "" {
		return
	}
	if b.throttle != nil {
		if ok, wait := b.throttle.Allow(strconv.FormatInt(userID, 10)); !ok {
			logging.FromContext(ctx).Warn("bot: user throttled", slog.Duration("retry_after", wait))
			b.command(ctx, chatID, "chat_throttled", MsgSlowDown)
			return
		}
	}

	unlock := b.locks.Lock(userID)
	defer unlock()
	b.turn(ctx, chatID, userID, msg.Text)
}

func (b *Bot) command(ctx context.Context, chatID int64, name, text string) {
	outcome := "ok"
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logging.FromContext(ctx).Error("bot: send failed", slog.String("command", name), slog.Any("error", err))
		outcome = "error"
	}
	b.turns.WithLabelValues(name, outcome).Inc()
}

// turn posts the thinking placeholder, runs the agent and replaces the
// placeholder with the answer.
func (b *Bot) turn(ctx context.Context, chatID, userID int64, text string) {
	log := logging.FromContext(ctx)

	thinking, err := b.api.Send(tgbotapi.NewMessage(chatID, MsgThinking))
	if err != nil {
		log.Error("bot: failed to send thinking message", slog.Any("error", err))
		b.turns.WithLabelValues("chat", "error").Inc()
		return
	}

	outcome := "ok"
	reply, err := b.agent.Reply(ctx, userID, text)
	if err != nil {
		log.Error("bot: agent turn failed", slog.Any("error", err))
		reply = agent.Apology
		outcome = "error"
	}
	if reply == "" {
		reply = agent.Apology
	}
	reply = Truncate(reply)

	edit := tgbotapi.NewEditMessageText(chatID, thinking.MessageID, reply)
	if _, err := b.api.Send(edit); err != nil {
		log.Warn("bot: edit failed, sending a new message", slog.Any("error", err))
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
			log.Error("bot: send failed", slog.Any("error", err))
			outcome = "error"
		}
	}
	b.turns.WithLabelValues("chat", outcome).Inc()
}

// Truncate cuts text to MaxMessageLength characters, ending with "..." when
// anything was dropped.
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxMessageLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxMessageLength-len(truncationSuffix)]) + truncationSuffix
}
