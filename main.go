package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/locker"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailbox"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/adapter/mailer"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/config"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/policy"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/realtime"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/seed"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/service"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/store"
	server "github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/transport/http"
	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/watch"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "hospital",
		Short:        "Hospital patient messaging backend",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(checkRepliesCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// app holds the dependencies every command shares.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *store.SQLiteStore
	svc    *service.Service
	close  []func() error
}

// newApp opens the store and builds the service. pub may be nil.
func newApp(ctx context.Context, cfg *config.Config, pub service.Publisher) (*app, error) {
	a := &app{cfg: cfg, logger: newLogger(cfg)}

	var err error
	a.db, err = store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.close = append(a.close, a.db.Close)
	a.logger.Info().Str("path", cfg.DatabasePath).Msg("database ready")

	policyEngine, err := policy.NewDefaultEngine(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("policy engine: %w", err)
	}

	lk, err := a.locker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Leave the interfaces nil when mail is off so the service sees them unset.
	var mb mailbox.Mailbox
	var ml mailer.Mailer
	if cfg.MailEnabled() {
		mb = mailbox.NewIMAP(mailbox.Config{
			Host:       cfg.IMAPHost,
			Port:       cfg.IMAPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			SentFolder: cfg.IMAPSentFolder,
			Timeout:    cfg.MailTimeout,
		}, a.logger)
		ml = mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.HospitalEmail,
			Timeout:  cfg.MailTimeout,
		})
	} else {
		a.logger.Warn().Msg("SMTP credentials not set, email notifications and reply checks are disabled")
	}

	a.svc = service.New(a.db, lk, mb, ml, policyEngine, pub, cfg, a.logger)
	if err := a.svc.EnsureAdmin(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	return a, nil
}

func (a *app) locker(ctx context.Context) (locker.Locker, error) {
	if a.cfg.RedisURL == "" {
		return locker.NewLocal(), nil
	}
	client, err := locker.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.close = append(a.close, client.Close)
	a.logger.Info().Msg("using redis locks")
	return locker.NewRedis(client, a.cfg.LockTTL), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		if err := a.close[i](); err != nil {
			a.logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	hub := realtime.NewHub(newLogger(cfg))
	go hub.Run(ctx)

	a, err := newApp(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	if a.cfg.MailEnabled() {
		go a.svc.RunReplyMonitor(ctx)
	}

	e := server.NewServer(a.svc, hub, a.cfg, logger)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.HTTPPort)
		logger.Info().Str("addr", addr).Str("env", a.cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	// Stops the reply monitor and the hub, then lets notifications finish.
	cancel()
	a.svc.Wait()

	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *store.Migrator) error {
				n, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				version, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Applied %d migration(s), schema version %d\n", n, version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(ctx context.Context, m *store.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-30s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-30s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(ctx context.Context, fn func(ctx context.Context, m *store.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := store.OpenDB(store.DSN(cfg.DatabasePath))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, store.NewMigrator(db))
}

func seedCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with fake records for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.cfg.IsDev() {
				return fmt.Errorf("refusing to seed with ENV=%s", a.cfg.Env)
			}

			res, err := seed.Run(ctx, a.svc, opts, a.logger)
			a.svc.Wait()
			if err != nil {
				return err
			}
			a.logger.Info().Interface("result", res).Msg("seed complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Patients, "patients", 25, "Number of patients")
	cmd.Flags().IntVar(&opts.VisitsPer, "visits", 2, "Visits per patient")
	cmd.Flags().IntVar(&opts.Appointments, "appointments", 15, "Number of appointments")
	cmd.Flags().IntVar(&opts.Conversations, "conversations", 8, "Number of patient conversations")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Random seed (0 for random)")
	return cmd
}

func checkRepliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-replies",
		Short: "Run one reply check against the mailbox and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.CheckReplies(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func watchCmd() *cobra.Command {
	var addr, session string
	var all bool
	cmd := &cobra.Command{
		Use:   "watch [conversation-id]",
		Short: "Follow the live message feed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := realtime.AllConversations
			switch {
			case len(args) == 1:
				target = args[0]
			case !all:
				return watch.ErrNoTarget
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := watch.Dial(ctx, addr, session)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Subscribe(target); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Watching %s on %s\n", target, addr)
			return c.Stream(ctx, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:3000/api/ws", "Live feed URL")
	cmd.Flags().StringVar(&session, "session", os.Getenv("HOSPITAL_SESSION"), "Operator session token")
	cmd.Flags().BoolVar(&all, "all", false, "Follow every conversation (needs an operator session)")
	return cmd
}
