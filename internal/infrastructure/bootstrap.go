package infrastructure

import (
	"context"

	"capypay/internal/config"
	"capypay/internal/repository"
	"capypay/internal/service"
	transportHTTP "capypay/internal/transport/http"
	transportNATS "capypay/internal/transport/nats"
	"capypay/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
	})

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)
	bus := transportNATS.NewBus(nc)

	// ── Stores ─────────────────────────────────────────────────────────────
	accounts := repository.NewAccountRepo(db)
	wallet := repository.NewWalletRepo(db)
	rates := repository.NewRateRepo(db, rdb)
	menu := repository.NewMenuRepo(db)
	orders := repository.NewOrderRepo(db)
	notifications := repository.NewNotificationRepo(db)
	contacts := repository.NewContactRepo(db)
	sessions := repository.NewSessionRepo(rdb, cfg.SessionTTL)
	cache := repository.NewCache(rdb)

	// ── Engines ────────────────────────────────────────────────────────────
	walletEngine := service.NewWalletEngine(accounts, wallet, rates, bus, cfg.P2PCommission)
	settlement := service.NewSettlementEngine(menu, orders, cache)
	history := service.NewHistoryAggregator(accounts, wallet, orders)
	ranking := service.NewRankingAggregator(accounts, cache)
	users := service.NewUsers(accounts, sessions)
	contactSvc := service.NewContacts(accounts, contacts)
	notificationSvc := service.NewNotifications(notifications)

	// ── Servers ────────────────────────────────────────────────────────────
	var servers []Server

	servers = append(servers, worker.NewNotificationWorker(notificationSvc, nc))
	servers = append(servers, transportNATS.NewHandler(settlement, nc))

	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		handler := transportHTTP.NewHandler(users, walletEngine, history, settlement,
			ranking, notificationSvc, contactSvc)
		servers = append(servers, transportHTTP.NewServer(addr, handler))
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
