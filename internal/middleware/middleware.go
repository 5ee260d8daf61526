package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/contextkeys"
	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/types"
)

type Middlewares struct {
	users    types.UserStore
	sessions types.SessionStore
}

func New(users types.UserStore, sessions types.SessionStore) *Middlewares {
	return &Middlewares{
		users:    users,
		sessions: sessions,
	}
}

// SessionMiddleware upserts the user row and puts the wizard session on the
// context. Every handler downstream can assume both exist.
func (m *Middlewares) SessionMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			userID   int64
			chatID   int64
			username string
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			userID = update.Message.From.ID
			chatID = update.Message.Chat.ID
			username = update.Message.From.Username
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			username = update.CallbackQuery.From.Username
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			if chatID == 0 {
				return
			}
		default:
			return
		}

		if userID == 0 || chatID == 0 {
			return
		}

		if err := m.users.UpsertUser(ctx, userID, username); err != nil {
			log.Printf("Error upserting user %d: %v", userID, err)
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(),
				ParseMode: messages.ParseModeHTML,
			})
			return
		}

		session, err := m.sessions.GetSession(userID)
		if err != nil {
			session = &types.Session{
				UserID:    userID,
				ChatID:    chatID,
				State:     types.SessionIdle,
				UpdatedAt: time.Now().UTC(),
			}
			if err := m.sessions.SaveSession(session); err != nil {
				log.Printf("Error creating session for %d: %v", userID, err)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID:    chatID,
					Text:      messages.ErrorDefault(),
					ParseMode: messages.ParseModeHTML,
				})
				return
			}
		}
		session.ChatID = chatID

		next(contextkeys.WithSession(ctx, session), b, update)
	}
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var newCtx context.Context

		switch {
		case update.CallbackQuery != nil && update.CallbackQuery.Data != "":
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
		case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
		case update.Message != nil && update.Message.Text != "":
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
		default:
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
		}

		next(newCtx, b, update)
	}
}
