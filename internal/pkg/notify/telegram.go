package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
)

// Min interval between two messages to the same chat; Telegram answers 429
// above roughly 30 messages a minute.
const telegramSendInterval = 2 * time.Second

var ErrQueueFull = errors.New("message queue is full")

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram queues alerts and sends them from one background goroutine,
// spaced at least interval apart.
type Telegram struct {
	bot      botSender
	chatID   int64
	interval time.Duration

	mu       sync.Mutex
	lastSend time.Time

	queue     chan string
	queueDone chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
}

// NewTelegram connects to the Bot API and starts the sender.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	slog.Info("Telegram notifier initialized", "chat_id", cfg.ChatID)
	return newTelegram(bot, cfg.ChatID, telegramSendInterval), nil
}

func newTelegram(bot botSender, chatID int64, interval time.Duration) *Telegram {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Telegram{
		bot:       bot,
		chatID:    chatID,
		interval:  interval,
		queue:     make(chan string, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	go n.messageSender()
	return n
}

func (n *Telegram) Name() string { return "telegram" }

// Notify queues msg without blocking.
func (n *Telegram) Notify(ctx context.Context, msg string) error {
	select {
	case <-n.ctx.Done():
		return errors.New("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case n.queue <- msg:
		return nil
	default:
		slog.Warn("Telegram queue full, dropping message", "message_preview", truncate(msg, 50))
		return ErrQueueFull
	}
}

// QueueLen returns the number of messages waiting to be sent.
func (n *Telegram) QueueLen() int { return len(n.queue) }

// Stop sends whatever is still queued and stops the sender.
func (n *Telegram) Stop() {
	n.stopOnce.Do(n.cancel)
	<-n.queueDone
}

func (n *Telegram) messageSender() {
	defer close(n.queueDone)
	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case msg := <-n.queue:
					n.send(msg, false)
				default:
					return
				}
			}
		case msg := <-n.queue:
			n.send(msg, true)
		}
	}
}

// send delivers one message. While running it waits out the send interval;
// during the final drain it does not.
func (n *Telegram) send(text string, pace bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if wait := n.interval - time.Since(n.lastSend); pace && wait > 0 {
		select {
		case <-n.ctx.Done():
		case <-time.After(wait):
		}
	}
	n.lastSend = time.Now()
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		slog.Error("Telegram send failed", "error", err, "message_preview", truncate(text, 50))
		return
	}
	slog.Debug("Telegram send succeeded", "queue_length", len(n.queue))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
