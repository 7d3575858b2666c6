// Command facilitator runs the B402 gasless payment facilitator: it verifies
// EIP-712 payment authorizations and relays them through the B402Relayer
// contract on BNB Smart Chain, paying gas on behalf of payers.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"

	"github.com/ctrl-shift-projects/b402-facilitator-go/api"
	"github.com/ctrl-shift-projects/b402-facilitator-go/config"
	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/events"
	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
)

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	// Optional .env file for local development.
	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Crit("invalid configuration", "err", err)
	}

	client, err := core.NewEthClient(cfg.RPCURL)
	if err != nil {
		log.Crit("failed to dial RPC endpoint", "url", cfg.RPCURL, "err", err)
	}

	// The relayer account pays gas for every settlement; an empty account is
	// almost certainly a misconfiguration worth flagging at boot.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	balance, err := client.BalanceAt(ctx, cfg.RelayerAddress, nil)
	cancel()
	switch {
	case err != nil:
		log.Warn("could not read relayer balance", "err", err)
	case balance.Sign() == 0:
		log.Warn("relayer account has no BNB for gas", "relayer", cfg.RelayerAddress.Hex())
	default:
		log.Info("relayer balance", "wei", balance)
	}

	var (
		db   *sql.DB
		sink *events.Sink
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Crit("failed to open database", "err", err)
		}
		defer db.Close()
		sink = events.NewSink(db)
	} else {
		log.Warn("DATABASE_URL not set, event logging disabled")
	}

	m := metrics.New()
	server := api.NewServer(cfg, client, sink, m, db)

	log.Info("b402 facilitator service starting",
		"network", cfg.Network(),
		"chainId", cfg.ChainID,
		"relayer", cfg.RelayerAddress.Hex(),
		"contract", cfg.RelayerContract.Hex(),
		"port", cfg.Port,
	)

	if err := server.Router().Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		log.Crit("server exited", "err", err)
	}
}
