// Package notify отправляет уведомления персоналу о событиях заказов.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

// Sender описывает минимальный контракт Telegram-клиента.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier отправляет сообщения о заказах в чат персонала.
// Необязательный коллаборатор: nil-значение безопасно и ничего не делает.
type TelegramNotifier struct {
	bot    Sender
	chatID int64
}

// NewTelegramNotifier создаёт нотификатор с токеном бота и чатом персонала.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// NewTelegramNotifierWithSender создаёт нотификатор поверх готового
// клиента. Используется в тестах.
func NewTelegramNotifierWithSender(bot Sender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// OrderPlaced сообщает о новом заказе.
func (n *TelegramNotifier) OrderPlaced(o *model.Order) {
	if n == nil {
		return
	}
	text := fmt.Sprintf("🆕 Новый заказ #%s на %.2f ₺ (%d позиций)",
		o.DisplayCode, float64(o.TotalKurus)/100, len(o.Lines))
	n.send(text)
}

// OrderReady сообщает, что заказ готов к выдаче.
func (n *TelegramNotifier) OrderReady(o *model.Order) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("✅ Заказ #%s готов к выдаче", o.DisplayCode))
}

func (n *TelegramNotifier) send(text string) {
	// Уведомление — побочный канал: ошибки доставки не влияют на заказ.
	msg := tgbotapi.NewMessage(n.chatID, text)
	_, _ = n.bot.Send(msg)
}
