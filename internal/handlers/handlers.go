package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/auth"
	"github.com/pertamax98/bot-vpn/internal/config"
	"github.com/pertamax98/bot-vpn/internal/contextkeys"
	"github.com/pertamax98/bot-vpn/internal/deposit"
	"github.com/pertamax98/bot-vpn/internal/market"
	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/internal/reseller"
	"github.com/pertamax98/bot-vpn/types"
)

type Handlers struct {
	users     types.UserStore
	ledger    types.Ledger
	servers   types.ServerStore
	sessions  types.SessionStore
	auth      *auth.Authorizer
	deposits  *deposit.Service
	market    *market.Orchestrator
	resellers *reseller.Service
	cfg       *config.Config
}

func NewHandlers(users types.UserStore, ledger types.Ledger, servers types.ServerStore,
	sessions types.SessionStore, authorizer *auth.Authorizer, deposits *deposit.Service,
	orchestrator *market.Orchestrator, resellers *reseller.Service, cfg *config.Config) *Handlers {
	return &Handlers{
		users:     users,
		ledger:    ledger,
		servers:   servers,
		sessions:  sessions,
		auth:      authorizer,
		deposits:  deposits,
		market:    orchestrator,
		resellers: resellers,
		cfg:       cfg,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	session, ok := contextkeys.GetSession(ctx)
	if !ok {
		log.Printf("Error: session not found in context")
		return
	}

	messageType, _ := contextkeys.GetMessageType(ctx)
	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, session)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update, session)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, session)
	default:
		bh.reply(ctx, b, session.ChatID, messages.UnknownCommand())
	}
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
}

func (bh *Handlers) saveSession(session *types.Session) {
	session.UpdatedAt = time.Now().UTC()
	if err := bh.sessions.SaveSession(session); err != nil {
		log.Printf("Error saving session for %d: %v", session.UserID, err)
	}
}

func (bh *Handlers) resetSession(session *types.Session) {
	session.State = types.SessionIdle
	session.Action = ""
	session.Protocol = ""
	session.ServerID = 0
	session.Username = ""
	session.Password = ""
	bh.saveSession(session)
}
