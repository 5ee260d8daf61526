package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/contextkeys"
	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/types"
)

// Callback data is "proto:<flow>:<protocol>" then "server:<flow>:<id>".
const (
	flowBuy   = "buy"
	flowRenew = "renew"
	flowTrial = "trial"
)

var protocolButtons = []struct {
	Label    string
	Protocol types.Protocol
}{
	{"SSH", types.ProtocolSSH},
	{"VMess", types.ProtocolVMess},
	{"VLess", types.ProtocolVLess},
	{"Trojan", types.ProtocolTrojan},
	{"Shadowsocks", types.ProtocolShadowsocks},
}

func (bh *Handlers) sendProtocolKeyboard(ctx context.Context, b *bot.Bot, chatID int64, flow string) {
	rows := make([][]models.InlineKeyboardButton, 0, len(protocolButtons))
	for _, p := range protocolButtons {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         p.Label,
			CallbackData: fmt.Sprintf("proto:%s:%s", flow, p.Protocol),
		}})
	}
	action := types.ActionCreate
	if flow == flowRenew {
		action = types.ActionRenew
	}
	text := messages.ChooseProtocol(action)
	if flow == flowTrial {
		text = messages.ChooseTrialProtocol()
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

func (bh *Handlers) sendServerKeyboard(ctx context.Context, b *bot.Bot, chatID int64, flow string) {
	servers, err := bh.servers.ListServers(ctx)
	if err != nil {
		log.Printf("Error listing servers: %v", err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault())
		return
	}
	if len(servers) == 0 {
		bh.reply(ctx, b, chatID, messages.NoServers())
		return
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(servers))
	for _, s := range servers {
		label := fmt.Sprintf("%s — %s/hari", s.Name, messages.Rupiah(s.PricePerDay))
		if s.AccountsCreated >= s.AccountLimit {
			label = s.Name + " (penuh)"
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         label,
			CallbackData: fmt.Sprintf("server:%s:%d", flow, s.ID),
		}})
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.ChooseServer(),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update == nil || update.CallbackQuery == nil {
		return
	}
	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})

	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) != 3 {
		return
	}
	kind, flow, value := parts[0], parts[1], parts[2]

	switch kind {
	case "proto":
		protocol, ok := types.ParseProtocol(value)
		if !ok {
			return
		}
		session.Protocol = protocol
		session.Action = types.ActionCreate
		if flow == flowRenew {
			session.Action = types.ActionRenew
		}
		bh.saveSession(session)
		bh.sendServerKeyboard(ctx, b, session.ChatID, flow)

	case "server":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return
		}
		session.ServerID = id
		if flow == flowTrial {
			session.State = types.SessionTrialUsername
		} else {
			session.State = types.SessionBuyUsername
		}
		bh.saveSession(session)
		bh.reply(ctx, b, session.ChatID, messages.AskUsername())
	}
}
