package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/pertamax98/bot-vpn/internal/auth"
	"github.com/pertamax98/bot-vpn/internal/config"
	"github.com/pertamax98/bot-vpn/internal/deposit"
	"github.com/pertamax98/bot-vpn/internal/handlers"
	"github.com/pertamax98/bot-vpn/internal/market"
	"github.com/pertamax98/bot-vpn/internal/middleware"
	"github.com/pertamax98/bot-vpn/internal/payment"
	"github.com/pertamax98/bot-vpn/internal/provision"
	"github.com/pertamax98/bot-vpn/internal/reseller"
	"github.com/pertamax98/bot-vpn/internal/tier"
	"github.com/pertamax98/bot-vpn/store"
)

func main() {
	_ = config.LoadEnvFile("config.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "bot_vpn")
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()
	sessions := store.NewRedisSessionStore(rdb, 24)

	pgStore, err := store.NewPostgresStore(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()

	gateway := payment.NewQRISClient(cfg.QRISBaseURL, cfg.QRISMerchantID, cfg.QRISAPIKey, cfg.QRISQRString)
	notifier := handlers.NewTelegramNotifier()
	deposits := deposit.NewService(pgStore, gateway, notifier, deposit.Config{
		MinimumTopup: cfg.MinimumTopup,
		Expiry:       cfg.DepositExpiry,
		Interval:     cfg.ReconcileInterval,
	})

	resellers := reseller.NewService(pgStore, pgStore, pgStore, cfg.CommissionRate, cfg.ResellerUpgradeCost,
		tier.Thresholds{Gold: cfg.GoldThreshold, Platinum: cfg.PlatinumThreshold})
	provisioner := provision.NewSSHProvisioner("root", cfg.ProvisionTimeout)
	orchestrator := market.NewOrchestrator(pgStore, pgStore, pgStore, pgStore, pgStore, pgStore,
		resellers, provisioner, market.Config{
			TrialLimitUser:     cfg.TrialLimitUser,
			TrialLimitReseller: cfg.TrialLimitReseller,
			TrialMinutes:       int(cfg.TrialDuration.Minutes()),
			ProvisionTimeout:   cfg.ProvisionTimeout,
		})

	if err := orchestrator.RecoverStale(ctx); err != nil {
		log.Printf("Startup recovery failed: %v", err)
	}

	authorizer := auth.New(cfg.AdminIDs, pgStore)
	middlewares := middleware.New(pgStore, sessions)
	h := handlers.NewHandlers(pgStore, pgStore, pgStore, sessions, authorizer, deposits, orchestrator, resellers, cfg)

	httpClient := &http.Client{Timeout: 10 * time.Minute}
	b, err := bot.New(
		cfg.BotToken,
		bot.WithHTTPClient(50*time.Second, httpClient),
	)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	notifier.Bind(b)

	go deposits.Run(ctx)
	go resellers.RunMonthlyReset(ctx)

	handlerChain := middlewares.SessionMiddleware(
		middlewares.AnalyzeMessageMiddleware(
			h.MainHandler,
		),
	)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	log.Printf("%s started. Press Ctrl+C to stop.", cfg.StoreName)
	b.Start(ctx)
}
