package notify

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

type stubSender struct {
	sent []tgbotapi.MessageConfig
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func TestOrderPlaced_SendsToStaffChat(t *testing.T) {
	sender := &stubSender{}
	n := NewTelegramNotifierWithSender(sender, 100)

	n.OrderPlaced(&model.Order{
		DisplayCode: "1501",
		TotalKurus:  13000,
		Lines:       []model.CartLine{{ProductID: "americano", Quantity: 2}},
	})

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].ChatID != 100 {
		t.Fatalf("chat id = %d, want 100", sender.sent[0].ChatID)
	}
	if !strings.Contains(sender.sent[0].Text, "1501") {
		t.Fatalf("message does not mention display code: %q", sender.sent[0].Text)
	}
}

func TestNilNotifier_IsSafe(t *testing.T) {
	var n *TelegramNotifier

	n.OrderPlaced(&model.Order{DisplayCode: "1501"})
	n.OrderReady(&model.Order{DisplayCode: "1501"})
}
