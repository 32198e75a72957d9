package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
)

type fakeBot struct {
	mu    sync.Mutex
	texts []string
	at    []time.Time
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.texts = append(b.texts, c.(tgbotapi.MessageConfig).Text)
	b.at = append(b.at, time.Now())
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) sent() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.texts...)
}

func TestTelegramStopDrainsQueue(t *testing.T) {
	bot := &fakeBot{}
	n := newTelegram(bot, 42, time.Hour)
	ctx := context.Background()
	for _, msg := range []string{"CREATING NEW in-progress GAME NYY202407040", "TRANSITIONING NYY202407040 from in-progress to concluded", "third"} {
		if err := n.Notify(ctx, msg); err != nil {
			t.Fatalf("Notify(%q): %v", msg, err)
		}
	}
	n.Stop()

	got := bot.sent()
	if len(got) != 3 || got[0] != "CREATING NEW in-progress GAME NYY202407040" || got[2] != "third" {
		t.Errorf("sent = %q, want all three in order", got)
	}
	if err := n.Notify(ctx, "late"); err == nil {
		t.Error("Notify after Stop succeeded")
	}
}

func TestTelegramPacesSends(t *testing.T) {
	bot := &fakeBot{}
	n := newTelegram(bot, 42, 50*time.Millisecond)
	n.Notify(context.Background(), "a")
	n.Notify(context.Background(), "b")

	deadline := time.Now().Add(2 * time.Second)
	for len(bot.sent()) < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for sends")
		}
		time.Sleep(5 * time.Millisecond)
	}
	n.Stop()

	bot.mu.Lock()
	defer bot.mu.Unlock()
	if gap := bot.at[1].Sub(bot.at[0]); gap < 40*time.Millisecond {
		t.Errorf("gap between sends = %v, want at least the interval", gap)
	}
}

func TestEmailNotify(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	e := NewEmail(config.EmailConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		Sender:    "scraper@example.com",
		Password:  "app-password",
		Recipient: "5551234567@txt.example.net",
	})
	e.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	if err := e.Notify(context.Background(), "WARNING: live game NYY202407040 was POSTPONED."); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if len(gotTo) != 1 || gotTo[0] != "5551234567@txt.example.net" {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.HasSuffix(gotMsg, "\r\n\r\nWARNING: live game NYY202407040 was POSTPONED.\r\n") {
		t.Errorf("message = %q", gotMsg)
	}
}

type failing struct{ name string }

func (f failing) Name() string                           { return f.name }
func (f failing) Notify(context.Context, string) error { return errors.New("unreachable") }

type recording struct{ msgs []string }

func (r *recording) Name() string { return "recording" }
func (r *recording) Notify(_ context.Context, msg string) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestMultiNotify(t *testing.T) {
	m := metrics.New()
	rec := &recording{}
	multi := NewMulti(m, failing{"email"}, rec)

	err := multi.Notify(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "email") {
		t.Errorf("Notify error = %v, want the email failure", err)
	}
	if len(rec.msgs) != 1 {
		t.Errorf("healthy notifier got %d messages, want 1", len(rec.msgs))
	}
	if got := testutil.ToFloat64(m.NotifyFailures.WithLabelValues("email")); got != 1 {
		t.Errorf("notify failures = %v, want 1", got)
	}
}
