//go:build !integration

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/worker"
)

type fakeMail struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeMail) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type fakeBot struct {
	chats []int64
	fail  map[int64]bool
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.chats = append(f.chats, msg.ChatID)
	if f.fail[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("blocked")
	}
	return tgbotapi.Message{}, nil
}

func TestEmailNotifier(t *testing.T) {
	t.Run("should build the message headers", func(t *testing.T) {
		fm := &fakeMail{}
		e := &EmailNotifier{from: "noreply@studio.test", sender: fm}
		err := e.Notify(context.Background(), "a@b.test", adapter.Notification{Subject: "Model ready", Body: "done"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fm.sent) != 1 {
			t.Fatalf("expected one message, got %d", len(fm.sent))
		}
		if got := fm.sent[0].GetHeader("Subject"); len(got) != 1 || got[0] != "Model ready" {
			t.Errorf("unexpected subject %v", got)
		}
		if got := fm.sent[0].GetHeader("To"); len(got) != 1 || got[0] != "a@b.test" {
			t.Errorf("unexpected recipient %v", got)
		}
	})

	t.Run("should reject an empty recipient", func(t *testing.T) {
		e := &EmailNotifier{from: "x@y", sender: &fakeMail{}}
		if err := e.Notify(context.Background(), "", adapter.Notification{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestTelegramAlerter_SendsToEveryChat(t *testing.T) {
	bot := &fakeBot{fail: map[int64]bool{2: true}}
	a := &TelegramAlerter{bot: bot, chatIDs: []int64{1, 2, 3}}

	err := a.Alert(context.Background(), "training failed")
	if err == nil {
		t.Fatal("expected the failure of chat 2 to be reported")
	}
	if len(bot.chats) != 3 {
		t.Errorf("expected 3 sends, got %v", bot.chats)
	}
}

type recNotifier struct {
	mu  sync.Mutex
	got []string
}

func (r *recNotifier) Notify(ctx context.Context, to string, n adapter.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, to)
	return nil
}

func (r *recNotifier) Alert(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, "alert:"+text)
	return nil
}

func TestAsync_DeliversThroughPool(t *testing.T) {
	log := zerolog.Nop()
	pool := worker.NewPool(2, &log)
	pool.Start(context.Background())

	rec := &recNotifier{}
	a := NewAsync(pool, rec, rec, &log)
	if err := a.Notify(context.Background(), "u@x.test", adapter.Notification{Subject: "s"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := a.Alert(context.Background(), "boom"); err != nil {
		t.Fatalf("alert: %v", err)
	}
	pool.Stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.got) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", rec.got)
	}
}
