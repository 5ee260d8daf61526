package handlers

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/deposit"
	"github.com/pertamax98/bot-vpn/internal/market"
	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/internal/provision"
	"github.com/pertamax98/bot-vpn/internal/validate"
	"github.com/pertamax98/bot-vpn/store"
	"github.com/pertamax98/bot-vpn/types"
)

func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update, session *types.Session) {
	if update == nil || update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)

	switch session.State {
	case types.SessionTopupAmount:
		bh.stepTopupAmount(ctx, b, session, text)
	case types.SessionBuyUsername:
		bh.stepBuyUsername(ctx, b, session, text)
	case types.SessionBuyPassword:
		bh.stepBuyPassword(ctx, b, session, text)
	case types.SessionBuyDuration:
		bh.stepBuyDuration(ctx, b, session, text)
	case types.SessionTrialUsername:
		bh.stepTrialUsername(ctx, b, session, text)
	default:
		bh.reply(ctx, b, session.ChatID, messages.UnknownCommand())
	}
}

func (bh *Handlers) stepTopupAmount(ctx context.Context, b *bot.Bot, session *types.Session, text string) {
	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		bh.reply(ctx, b, session.ChatID, messages.InvalidAmount())
		return
	}

	d, qr, err := bh.deposits.CreateDeposit(ctx, session.UserID, amount)
	switch {
	case errors.Is(err, deposit.ErrAmountTooSmall):
		bh.reply(ctx, b, session.ChatID, messages.TopupTooSmall(bh.cfg.MinimumTopup))
		return
	case errors.Is(err, deposit.ErrTooManyAttempts):
		bh.reply(ctx, b, session.ChatID, messages.TopupBusy())
	case err != nil:
		log.Printf("Error creating deposit for %d: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
	default:
		minutes := int(bh.cfg.DepositExpiry.Minutes())
		msg, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:    session.ChatID,
			Photo:     &models.InputFileUpload{Filename: "qris.png", Data: bytes.NewReader(qr)},
			Caption:   messages.TopupQRCaption(d.Amount, d.ProviderAmount, minutes),
			ParseMode: messages.ParseModeHTML,
		})
		if err != nil {
			log.Printf("Error sending QR to %d: %v", session.UserID, err)
		} else if msg != nil {
			bh.deposits.AttachQRMessage(ctx, d.Code, msg.ID)
		}
	}
	bh.resetSession(session)
}

func (bh *Handlers) stepBuyUsername(ctx context.Context, b *bot.Bot, session *types.Session, text string) {
	if err := validate.Username(text); err != nil {
		bh.reply(ctx, b, session.ChatID, messages.InvalidUsername())
		return
	}
	session.Username = text
	if session.Action == types.ActionCreate && session.Protocol == types.ProtocolSSH {
		session.State = types.SessionBuyPassword
		bh.saveSession(session)
		bh.reply(ctx, b, session.ChatID, messages.AskPassword())
		return
	}
	session.State = types.SessionBuyDuration
	bh.saveSession(session)
	bh.reply(ctx, b, session.ChatID, messages.AskDuration())
}

func (bh *Handlers) stepBuyPassword(ctx context.Context, b *bot.Bot, session *types.Session, text string) {
	if err := validate.Password(text); err != nil {
		bh.reply(ctx, b, session.ChatID, messages.InvalidPassword())
		return
	}
	session.Password = text
	session.State = types.SessionBuyDuration
	bh.saveSession(session)
	bh.reply(ctx, b, session.ChatID, messages.AskDuration())
}

func (bh *Handlers) stepBuyDuration(ctx context.Context, b *bot.Bot, session *types.Session, text string) {
	days, err := strconv.Atoi(text)
	if err != nil || validate.DurationDays(days) != nil {
		bh.reply(ctx, b, session.ChatID, messages.InvalidDuration())
		return
	}

	req := market.PurchaseRequest{
		UserID:    session.UserID,
		BuyerName: bh.buyerName(ctx, session.UserID),
		Action:    session.Action,
		Protocol:  session.Protocol,
		ServerID:  session.ServerID,
		Username:  session.Username,
		Password:  session.Password,
		Days:      days,
	}
	res, err := bh.market.Purchase(ctx, req)
	if err != nil {
		bh.replyPurchaseError(ctx, b, session, err)
		bh.resetSession(session)
		return
	}

	bh.reply(ctx, b, session.ChatID,
		messages.Receipt(req.Action, req.Protocol, res.Details, days, res.Price, res.NewBalance))
	if res.Sale != nil && res.Sale.Promoted {
		bh.reply(ctx, b, session.ChatID, messages.TierPromoted(res.Sale.NewTier))
	}
	if bh.cfg.GroupID != 0 {
		bh.reply(ctx, b, bh.cfg.GroupID, messages.GroupSale(bh.cfg.StoreName, req.Protocol, days))
	}
	bh.resetSession(session)
}

func (bh *Handlers) stepTrialUsername(ctx context.Context, b *bot.Bot, session *types.Session, text string) {
	if err := validate.Username(text); err != nil {
		bh.reply(ctx, b, session.ChatID, messages.InvalidUsername())
		return
	}

	details, err := bh.market.Trial(ctx, session.UserID, bh.buyerName(ctx, session.UserID), session.Protocol, session.ServerID, text)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrTrialLimit):
			bh.reply(ctx, b, session.ChatID, messages.TrialLimitReached())
		case errors.Is(err, store.ErrServerNotFound):
			bh.reply(ctx, b, session.ChatID, messages.ServerNotFound())
		default:
			log.Printf("Trial for %d failed: %v", session.UserID, err)
			bh.reply(ctx, b, session.ChatID, messages.ProvisioningFailed())
		}
		bh.resetSession(session)
		return
	}

	minutes := int(bh.cfg.TrialDuration.Minutes())
	bh.reply(ctx, b, session.ChatID, messages.TrialReceipt(session.Protocol, details, minutes))
	bh.resetSession(session)
}

func (bh *Handlers) replyPurchaseError(ctx context.Context, b *bot.Bot, session *types.Session, err error) {
	switch {
	case errors.Is(err, validate.ErrInvalidInput):
		bh.reply(ctx, b, session.ChatID, messages.InvalidDuration())
	case errors.Is(err, store.ErrInsufficientFunds):
		balance, _ := bh.ledger.GetBalance(ctx, session.UserID)
		bh.reply(ctx, b, session.ChatID, messages.InsufficientFunds(balance))
	case errors.Is(err, store.ErrServerFull):
		bh.reply(ctx, b, session.ChatID, messages.ServerFull())
	case errors.Is(err, store.ErrServerNotFound):
		bh.reply(ctx, b, session.ChatID, messages.ServerNotFound())
	case errors.Is(err, market.ErrAccountNotActive):
		bh.reply(ctx, b, session.ChatID, messages.AccountNotActive())
	case errors.Is(err, provision.ErrProvisioningFailed), errors.Is(err, context.DeadlineExceeded):
		bh.reply(ctx, b, session.ChatID, messages.ProvisioningFailed())
	default:
		log.Printf("Purchase for %d failed: %v", session.UserID, err)
		bh.reply(ctx, b, session.ChatID, messages.ProvisioningFailed())
	}
}

func (bh *Handlers) buyerName(ctx context.Context, userID int64) string {
	if u, err := bh.users.GetUser(ctx, userID); err == nil && u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(userID, 10)
}
