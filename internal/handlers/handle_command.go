package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/internal/reseller"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := session.ChatID
	fields := strings.Fields(update.Message.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	// Any command abandons a wizard in progress.
	if session.State != types.SessionIdle {
		bh.resetSession(session)
	}

	switch cmd {
	case "/start", "/menu":
		bh.cmdStart(ctx, b, update, session)
	case "/saldo":
		bh.cmdSaldo(ctx, b, session)
	case "/topup":
		session.State = types.SessionTopupAmount
		bh.saveSession(session)
		bh.reply(ctx, b, chatID, messages.TopupAskAmount(bh.cfg.MinimumTopup))
	case "/beli":
		bh.sendProtocolKeyboard(ctx, b, chatID, flowBuy)
	case "/renew":
		bh.sendProtocolKeyboard(ctx, b, chatID, flowRenew)
	case "/trial":
		bh.sendProtocolKeyboard(ctx, b, chatID, flowTrial)
	case "/komisi":
		bh.cmdKomisi(ctx, b, session)
	case "/upgrade":
		bh.cmdUpgrade(ctx, b, session, args)
	case "/servers", "/listserver":
		bh.cmdServers(ctx, b, session)
	case "/addserver", "/delserver", "/editharga", "/setsaldo", "/resetkomisi":
		bh.HandleAdminCommand(ctx, b, session, cmd, args)
	default:
		bh.reply(ctx, b, chatID, messages.UnknownCommand())
	}
}

func (bh *Handlers) cmdStart(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	u, err := bh.users.GetUser(ctx, session.UserID)
	if err != nil {
		log.Printf("Error loading user %d: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	name := u.Username
	if update.Message != nil && update.Message.From != nil && update.Message.From.FirstName != "" {
		name = update.Message.From.FirstName
	}
	if bh.auth.IsAdmin(session.UserID) {
		u.Role = types.RoleAdmin
	}
	bh.reply(ctx, b, session.ChatID, messages.Welcome(bh.cfg.StoreName, name, u))
}

func (bh *Handlers) cmdSaldo(ctx context.Context, b *bot.Bot, session *types.Session) {
	balance, err := bh.ledger.GetBalance(ctx, session.UserID)
	if err != nil {
		log.Printf("Error reading balance for %d: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.BalanceInfo(balance))
}

func (bh *Handlers) cmdKomisi(ctx context.Context, b *bot.Bot, session *types.Session) {
	if !bh.auth.Authorize(ctx, session.UserID, types.RoleReseller) {
		bh.reply(ctx, b, session.ChatID, messages.UpgradeOffer(bh.cfg.ResellerUpgradeCost))
		return
	}
	sum, err := bh.resellers.Summary(ctx, session.UserID, 5)
	if err != nil {
		log.Printf("Error building commission summary for %d: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.CommissionSummary(sum.Total, sum.Tier, sum.Recent))
}

func (bh *Handlers) cmdUpgrade(ctx context.Context, b *bot.Bot, session *types.Session, args []string) {
	if len(args) == 0 || !strings.EqualFold(args[0], "confirm") {
		bh.reply(ctx, b, session.ChatID, messages.UpgradeOffer(bh.cfg.ResellerUpgradeCost))
		return
	}
	balance, err := bh.resellers.Upgrade(ctx, session.UserID)
	switch {
	case errors.Is(err, reseller.ErrAlreadyReseller):
		bh.reply(ctx, b, session.ChatID, messages.AlreadyReseller())
	case errors.Is(err, store.ErrInsufficientFunds):
		current, _ := bh.ledger.GetBalance(ctx, session.UserID)
		bh.reply(ctx, b, session.ChatID, messages.InsufficientFunds(current))
	case err != nil:
		log.Printf("Error upgrading user %d: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
	default:
		bh.reply(ctx, b, session.ChatID, messages.UpgradeDone(balance))
	}
}

func (bh *Handlers) cmdServers(ctx context.Context, b *bot.Bot, session *types.Session) {
	servers, err := bh.servers.ListServers(ctx)
	if err != nil {
		log.Printf("Error listing servers: %v", err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.ServerList(servers, bh.auth.IsAdmin(session.UserID)))
}
