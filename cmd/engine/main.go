// Package main provides the smart-wallet detection engine entry point.
// Runs one detection cycle or a single pass over the tracked wallet set.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"smart-wallet-engine/internal/alert"
	"smart-wallet-engine/internal/backfill"
	"smart-wallet-engine/internal/config"
	"smart-wallet-engine/internal/consensus"
	"smart-wallet-engine/internal/differ"
	"smart-wallet-engine/internal/ledger"
	"smart-wallet-engine/internal/migration"
	"smart-wallet-engine/internal/observability"
	"smart-wallet-engine/internal/orchestrator"
	"smart-wallet-engine/internal/pricing"
	"smart-wallet-engine/internal/providers"
	"smart-wallet-engine/internal/scorer"
	"smart-wallet-engine/internal/storage"
	"smart-wallet-engine/internal/storage/clickhouse"
	"smart-wallet-engine/internal/storage/migrations"
	"smart-wallet-engine/internal/storage/postgres"
	"smart-wallet-engine/pkg/logger"
)

func main() {
	pass := flag.String("pass", "all", "Pass to run: differ | ledger | scorer | consensus | migration | all")
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Engine.LogFile)
	logger.SetLogLevel(cfg.Engine.LogLevel)
	log := logger.Logrus

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Warn("shutdown signal received, cancelling run")
		cancel()
	}()

	pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.WithError(err).Fatal("postgres connection failed")
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		log.WithError(err).Fatal("postgres migrations failed")
	}

	var archive storage.SignalArchive
	if cfg.Clickhouse.Enabled && cfg.Consensus.ArchiveSignal {
		conn, err := clickhouse.NewConn(ctx, cfg.Clickhouse.DSN())
		if err != nil {
			log.WithError(err).Fatal("clickhouse connection failed")
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			log.WithError(err).Fatal("clickhouse migrations failed")
		}
		archive = clickhouse.NewSignalArchiveStore(conn)
	}

	var priceCache pricing.Cache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		priceCache = pricing.NewRedisCache(client, 5*time.Minute)
	} else {
		priceCache = pricing.NewMemoryCache(5 * time.Minute)
	}

	keys := providers.NewKeyRing(cfg.Provider.APIKeys, time.Duration(cfg.Provider.RotateDelayMS)*time.Millisecond)
	clientOpts := []providers.ClientOption{
		providers.WithTimeout(time.Duration(cfg.Provider.TimeoutSeconds) * time.Second),
		providers.WithMaxRetries(cfg.Provider.MaxRetries),
	}
	walletData := providers.NewWalletClient(cfg.Provider.WalletDataBaseURL, keys, clientOpts...)
	marketData := providers.NewMarketClient(cfg.Provider.MarketDataBaseURL, keys, clientOpts...)

	var alerts alert.Channel
	if cfg.Telegram.Enabled {
		alerts = alert.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			log.WithField("listen", cfg.Metrics.Listen).Info("metrics endpoint started")
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}()
	}

	txs := postgres.NewTransactionStore(pool)
	ledgers := postgres.NewLedgerStore(pool)
	snapshots := postgres.NewSnapshotStore(pool)
	events := postgres.NewChangeEventStore(pool)
	profiles := postgres.NewTierProfileStore(pool)
	thresholds := postgres.NewThresholdStore(pool)
	signals := postgres.NewSignalStore(pool)
	migrationStore := postgres.NewMigrationStore(pool)
	wallets := postgres.NewWalletStore(pool)

	oracle := pricing.NewOracle(marketData, priceCache, cfg.Ledger.PriceCeiling, cfg.Ledger.FallbackNative, log)
	backfiller := backfill.New(walletData, txs, time.Duration(cfg.Engine.CallPauseMS)*time.Millisecond, log)

	orch := orchestrator.New(orchestrator.Options{
		WalletStore:      wallets,
		ChangeEventStore: events,
		Differ: differ.New(walletData, snapshots, events, differ.Config{
			MinQuantity:    cfg.Differ.MinQuantity,
			MinUSD:         cfg.Differ.MinUSD,
			RatioThreshold: cfg.Differ.RatioThreshold,
			USDFloor:       cfg.Differ.USDFloor,
		}, log),
		Backfiller: backfiller,
		Ledger: ledger.NewRunner(txs, ledgers, oracle, ledger.Guards{
			PriceCeiling:   cfg.Ledger.PriceCeiling,
			ValueCeiling:   cfg.Ledger.ValueCeiling,
			AirdropEpsilon: cfg.Ledger.AirdropEpsilon,
		}, log),
		Scorer: scorer.NewRunner(profiles, thresholds, scorer.Config{
			ROIFloor:        cfg.Scorer.ROIFloor,
			WinrateFloor:    cfg.Scorer.WinrateFloor,
			TradeFloor:      cfg.Scorer.TradeFloor,
			WeightROI:       cfg.Scorer.WeightROI,
			WeightWinrate:   cfg.Scorer.WeightWinrate,
			WeightTrades:    cfg.Scorer.WeightTrades,
			SmoothingAlpha:  cfg.Scorer.SmoothingAlpha,
			Percentile:      cfg.Scorer.Percentile,
			PlateauFraction: cfg.Scorer.PlateauFraction,
			TierPenalty:     cfg.Scorer.TierPenalty,
			BaseTier:        cfg.Scorer.BaseTier,
		}, log),
		Consensus: consensus.New(txs, thresholds, signals, archive, marketData, consensus.Config{
			LookbackDays: cfg.Consensus.LookbackDays,
			MinWhales:    cfg.Consensus.MinWhales,
			MinQuality:   cfg.Consensus.MinQuality,
			MarketCapMin: cfg.Consensus.MarketCapMin,
			MarketCapMax: cfg.Consensus.MarketCapMax,
		}, log),
		Migration: migration.New(walletData, walletData, txs, migrationStore, wallets, backfiller, migration.Config{
			LookbackDays:    cfg.Migration.LookbackDays,
			SubWindowDays:   cfg.Migration.SubWindowDays,
			TransferPercent: cfg.Migration.TransferPercent,
		}, log),
		Market:     marketData,
		Alerts:     alerts,
		BatchSize:  cfg.Engine.BatchSize,
		BatchPause: time.Duration(cfg.Engine.BatchPauseMS) * time.Millisecond,
		CallPause:  time.Duration(cfg.Engine.CallPauseMS) * time.Millisecond,
		Log:        log,
	})

	result, err := runPass(ctx, orch, *pass)
	if err != nil {
		log.WithError(err).Fatal("run failed")
	}

	log.WithField("errors", len(result.Errors)).Info("run complete")
	for _, e := range result.Errors {
		log.Warn(e)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func runPass(ctx context.Context, orch *orchestrator.Orchestrator, pass string) (*orchestrator.RunResult, error) {
	switch pass {
	case "all":
		return orch.RunAll(ctx)
	case "differ":
		return orch.RunDiffer(ctx, orchestrator.NewSessionID())
	case "ledger":
		return orch.RunLedger(ctx)
	case "scorer":
		return orch.RunScorer(ctx)
	case "consensus":
		return orch.RunConsensus(ctx)
	case "migration":
		return orch.RunMigration(ctx)
	default:
		return nil, fmt.Errorf("unknown pass %q", pass)
	}
}
