package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-codeduel/internal/api"
	"github.com/npezzotti/go-codeduel/internal/config"
	"github.com/npezzotti/go-codeduel/internal/database"
	"github.com/npezzotti/go-codeduel/internal/questions"
	"github.com/npezzotti/go-codeduel/internal/sandbox"
	"github.com/npezzotti/go-codeduel/internal/server"
	"github.com/npezzotti/go-codeduel/internal/stats"
	"github.com/urfave/cli/v2"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

func main() {
	logger := log.New(os.Stderr, "[codeduel] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Println("load .env:", err)
	}

	dsnFlag := &cli.StringFlag{
		Name:    "dsn",
		Usage:   "postgres connection URL, in-memory store when empty",
		EnvVars: []string{"CODEDUEL_DSN", "DATABASE_URL"},
	}

	app := &cli.App{
		Name:  "codeduel",
		Usage: "battle session coordinator for coding duels",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Value:   "localhost:8000",
						Usage:   "server address",
						EnvVars: []string{"CODEDUEL_ADDR"},
					},
					dsnFlag,
					&cli.StringFlag{
						Name:    "signing-key",
						Value:   defaultSigningKey,
						Usage:   "base64 encoded key used to verify session tokens",
						EnvVars: []string{"CODEDUEL_SIGNING_KEY"},
					},
					&cli.StringSliceFlag{
						Name:    "allowed-origins",
						Usage:   "allowed origins for CORS",
						EnvVars: []string{"CODEDUEL_ALLOWED_ORIGINS"},
					},
					&cli.StringFlag{
						Name:    "config",
						Usage:   "optional YAML file with battle, sandbox and seed settings",
						EnvVars: []string{"CODEDUEL_CONFIG"},
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.NewConfig(c.String("addr"), c.String("dsn"), c.String("signing-key"), c.StringSlice("allowed-origins"))
					if err != nil {
						return fmt.Errorf("config: %w", err)
					}
					if path := c.String("config"); path != "" {
						if err := cfg.ApplyFile(path); err != nil {
							return err
						}
					}
					return serve(logger, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{dsnFlag},
				Action: func(c *cli.Context) error {
					dsn := c.String("dsn")
					if dsn == "" {
						return fmt.Errorf("migrate requires --dsn")
					}
					if err := database.Migrate(dsn); err != nil {
						return err
					}
					logger.Println("migrations applied")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func openRepository(logger *log.Logger, cfg *config.Config) (database.BattleRepository, error) {
	if cfg.DatabaseDSN != "" {
		return database.NewPgBattleRepository(cfg.DatabaseDSN)
	}

	logger.Println("no database configured, using in-memory store")
	mem := database.NewMemoryRepository()
	for _, a := range cfg.SeedAccounts {
		mem.AddAccount(database.Account{Id: a.Id, Username: a.Username, Rating: a.Rating})
	}
	return mem, nil
}

func loadCatalog(cfg *config.Config) (*questions.StaticCatalog, error) {
	if cfg.QuestionBankPath != "" {
		return questions.LoadFile(cfg.QuestionBankPath)
	}
	return questions.Default()
}

func serve(logger *log.Logger, cfg *config.Config) error {
	db, err := openRepository(logger, cfg)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("question bank: %w", err)
	}
	logger.Printf("loaded %d questions", catalog.Len())

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	battleServer := server.NewBattleServer(logger, db, catalog, statsUpdater, server.Options{
		RoomTTL:       cfg.RoomTTL,
		TimerDuration: cfg.BattleDuration,
	})

	janitor, err := server.NewJanitor(logger, db, cfg.SweepInterval)
	if err != nil {
		return fmt.Errorf("janitor: %w", err)
	}

	executor := sandbox.NewPistonClient(logger, cfg.SandboxURL, cfg.SandboxRPS)

	srv := api.NewCodeDuelApp(mux, logger, battleServer, db, catalog, executor, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	janitor.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}

	if err := janitor.Shutdown(); err != nil {
		logger.Println("janitor shutdown:", err)
	}

	logger.Println("shutting down battle server...")
	if err := battleServer.Shutdown(shutDownCtx); err != nil {
		return fmt.Errorf("battle server shutdown: %w", err)
	}

	logger.Println("shutdown complete")
	return nil
}
