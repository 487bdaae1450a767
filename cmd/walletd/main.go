package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/wallet/internal/command"
	"github.com/mtlprog/wallet/internal/config"
	"github.com/mtlprog/wallet/internal/database"
	"github.com/mtlprog/wallet/internal/export"
	"github.com/mtlprog/wallet/internal/pricing"
	"github.com/mtlprog/wallet/internal/server"
	"github.com/mtlprog/wallet/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using environment variables")
	}

	app := &cli.App{
		Name:  "walletd",
		Usage: "cryptocurrency wallet manager server",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the wallet server",
				Action: runServe,
			},
			{
				Name:  "report",
				Usage: "export all users' balances and transactions to an xlsx workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "wallet-report.xlsx", Usage: "output file path"},
				},
				Action: runReport,
			},
			{
				Name:  "client",
				Usage: "interactive line client",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: "localhost:7777", Usage: "server address"},
				},
				Action: runClient,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	users, closeStore, err := newUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	source := pricing.NewCoinAPIClient(cfg.CoinAPIURL, cfg.CoinAPIKey,
		cfg.CoinAPIRetryMax, cfg.CoinAPIRetryBaseDelay)

	cache, err := pricing.NewCache(ctx, source, cfg.CacheRefreshInterval, cfg.CacheMaxAssets)
	if err != nil {
		return fmt.Errorf("creating asset cache: %w", err)
	}
	defer cache.Close()

	pipeline, err := command.NewPipeline(users, cache)
	if err != nil {
		return fmt.Errorf("creating command pipeline: %w", err)
	}

	srv, err := server.New(cfg.Addr(), pipeline)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func runReport(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	users, closeStore, err := newUserStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	out := c.String("out")
	if err := export.WriteReport(ctx, users, out); err != nil {
		return err
	}
	slog.Info("report written", "path", out)
	return nil
}

// newUserStore picks the Postgres store when DATABASE_URL is set and falls
// back to the in-memory store otherwise.
func newUserStore(ctx context.Context, cfg config.Config) (store.UserStore, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, users will not survive restarts")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return store.NewPgUserStore(pool), pool.Close, nil
}

func runClient(c *cli.Context) error {
	conn, err := net.Dial("tcp", c.String("addr"))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.String("addr"), err)
	}
	defer conn.Close()

	fmt.Println("Connected. Type commands, 'help' for a list, Ctrl+D to quit.")

	stdin := bufio.NewScanner(os.Stdin)
	replies := bufio.NewScanner(conn)

	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return stdin.Err()
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		if _, err := fmt.Fprintln(conn, line); err != nil {
			return fmt.Errorf("sending request: %w", err)
		}

		for replies.Scan() {
			reply := replies.Text()
			if reply == "STOP" {
				break
			}
			fmt.Println(reply)
		}
		if err := replies.Err(); err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}
}
