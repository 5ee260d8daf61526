package handlers

import (
	"context"
	"log"
	"sync"

	"github.com/go-telegram/bot"

	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/types"
)

// TelegramNotifier delivers deposit outcomes to the payer's chat. The bot is
// bound after construction because the reconciler is built before the bot.
type TelegramNotifier struct {
	mu sync.RWMutex
	b  *bot.Bot
}

func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{}
}

func (n *TelegramNotifier) Bind(b *bot.Bot) {
	n.mu.Lock()
	n.b = b
	n.mu.Unlock()
}

func (n *TelegramNotifier) bot() *bot.Bot {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.b
}

func (n *TelegramNotifier) deleteQR(ctx context.Context, b *bot.Bot, d types.PendingDeposit) {
	if d.QRMessageID == 0 {
		return
	}
	_, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    d.UserID,
		MessageID: d.QRMessageID,
	})
	if err != nil {
		log.Printf("Error deleting QR message for deposit %s: %v", d.Code, err)
	}
}

func (n *TelegramNotifier) TopupSuccess(ctx context.Context, d types.PendingDeposit, newBalance int64) {
	b := n.bot()
	if b == nil {
		return
	}
	n.deleteQR(ctx, b, d)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    d.UserID,
		Text:      messages.TopupSuccess(d.Amount, newBalance),
		ParseMode: messages.ParseModeHTML,
	})
}

func (n *TelegramNotifier) TopupExpired(ctx context.Context, d types.PendingDeposit) {
	b := n.bot()
	if b == nil {
		return
	}
	n.deleteQR(ctx, b, d)
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    d.UserID,
		Text:      messages.TopupExpired(d.Amount),
		ParseMode: messages.ParseModeHTML,
	})
}
