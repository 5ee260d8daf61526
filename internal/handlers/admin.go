package handlers

import (
	"context"
	"log"
	"strconv"

	"github.com/go-telegram/bot"

	"github.com/pertamax98/bot-vpn/internal/messages"
	"github.com/pertamax98/bot-vpn/types"
)

func (bh *Handlers) HandleAdminCommand(ctx context.Context, b *bot.Bot, session *types.Session, cmd string, args []string) {
	if !bh.auth.IsAdmin(session.UserID) {
		bh.reply(ctx, b, session.ChatID, messages.AdminOnly())
		return
	}

	switch cmd {
	case "/addserver":
		bh.adminAddServer(ctx, b, session, args)
	case "/delserver":
		bh.adminDelServer(ctx, b, session, args)
	case "/editharga":
		bh.adminEditPrice(ctx, b, session, args)
	case "/setsaldo":
		bh.adminSetBalance(ctx, b, session, args)
	case "/resetkomisi":
		bh.adminResetCommissions(ctx, b, session)
	}
}

// /addserver <nama> <domain> <root-password> <harga/hari> <batas-akun> [quota-gb] [ip-limit]
func (bh *Handlers) adminAddServer(ctx context.Context, b *bot.Bot, session *types.Session, args []string) {
	usage := "/addserver sg-1 sg1.domain.com rahasia 1000 100 [100] [2]"
	if len(args) < 5 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	price, err1 := strconv.ParseInt(args[3], 10, 64)
	limit, err2 := strconv.Atoi(args[4])
	if err1 != nil || err2 != nil || price <= 0 || limit <= 0 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	srv := types.Server{
		Name:         args[0],
		Domain:       args[1],
		AuthSecret:   args[2],
		PricePerDay:  price,
		AccountLimit: limit,
		QuotaGB:      100,
		IPLimit:      2,
	}
	if len(args) > 5 {
		if q, err := strconv.Atoi(args[5]); err == nil && q > 0 {
			srv.QuotaGB = q
		}
	}
	if len(args) > 6 {
		if n, err := strconv.Atoi(args[6]); err == nil && n > 0 {
			srv.IPLimit = n
		}
	}
	id, err := bh.servers.AddServer(ctx, srv)
	if err != nil {
		log.Printf("Error adding server %s: %v", srv.Name, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.ServerAdded(id, srv.Name))
}

func (bh *Handlers) adminDelServer(ctx context.Context, b *bot.Bot, session *types.Session, args []string) {
	if len(args) != 1 {
		bh.reply(ctx, b, session.ChatID, messages.Usage("/delserver 3"))
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		bh.reply(ctx, b, session.ChatID, messages.Usage("/delserver 3"))
		return
	}
	if err := bh.servers.DeleteServer(ctx, id); err != nil {
		log.Printf("Error deleting server %d: %v", id, err)
		bh.reply(ctx, b, session.ChatID, messages.ServerNotFound())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.ServerDeleted(id))
}

func (bh *Handlers) adminEditPrice(ctx context.Context, b *bot.Bot, session *types.Session, args []string) {
	usage := "/editharga 3 1500"
	if len(args) != 2 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	id, err1 := strconv.ParseInt(args[0], 10, 64)
	price, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || price <= 0 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	if err := bh.servers.UpdatePrice(ctx, id, price); err != nil {
		log.Printf("Error updating price for server %d: %v", id, err)
		bh.reply(ctx, b, session.ChatID, messages.ServerNotFound())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.PriceUpdated(id, price))
}

func (bh *Handlers) adminSetBalance(ctx context.Context, b *bot.Bot, session *types.Session, args []string) {
	usage := "/setsaldo 123456789 50000"
	if len(args) != 2 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	userID, err1 := strconv.ParseInt(args[0], 10, 64)
	amount, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil || amount < 0 {
		bh.reply(ctx, b, session.ChatID, messages.Usage(usage))
		return
	}
	if err := bh.ledger.SetBalance(ctx, userID, amount); err != nil {
		log.Printf("Error setting balance for %d: %v", userID, err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.SaldoSet(userID, amount))
}

func (bh *Handlers) adminResetCommissions(ctx context.Context, b *bot.Bot, session *types.Session) {
	if err := bh.resellers.ResetAll(ctx); err != nil {
		log.Printf("Error resetting commissions: %v", err)
		bh.reply(ctx, b, session.ChatID, messages.ErrorDefault())
		return
	}
	bh.reply(ctx, b, session.ChatID, messages.KomisiReset())
}
