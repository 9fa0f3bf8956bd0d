package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Alias1177/FraudShield/internal/classifier"
	"github.com/Alias1177/FraudShield/internal/config"
	"github.com/Alias1177/FraudShield/internal/history"
	"github.com/Alias1177/FraudShield/internal/logger"
	"github.com/Alias1177/FraudShield/internal/session"
	"github.com/Alias1177/FraudShield/internal/storage"
	"github.com/Alias1177/FraudShield/internal/theme"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app is what every subcommand works on, built once in PersistentPreRunE
type app struct {
	cfg     *config.Config
	store   storage.Store
	client  *classifier.Client
	session *session.Session

	apiURL  string
	driver  string
	verbose bool
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fraudshield",
		Short: "FraudShield - conversation fraud checks",
		Long: `FraudShield sends conversations to a classification service and keeps
a local history of the verdicts.

Run "fraudshield serve" for the web interface, or use the subcommands
below to classify and manage history from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Classification service base URL (or set FRAUDSHIELD_API_URL)")
	root.PersistentFlags().StringVar(&a.driver, "storage", "", "Storage driver: sqlite, postgres, redis or memory (or set STORAGE_DRIVER)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 0, "Timeout for a single prediction, 0 for none")

	root.AddCommand(
		a.serveCmd(),
		a.predictCmd(),
		a.historyCmd(),
		a.themeCmd(),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.applyFlags(cfg)
	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	logger.Setup(level)

	a.cfg = cfg
	a.store, err = storage.Open(ctx, cfg)
	if err != nil {
		return err
	}

	hist := history.NewStore(history.NewKVPersister(a.store))
	hist.Load(ctx)

	a.client = classifier.NewClient(cfg)
	a.session = session.New(a.client, hist, theme.NewPrefs(a.store),
		session.WithMaxLength(cfg.MaxLength),
	)
	log.Debug().
		Str("api_url", a.client.BaseURL()).
		Str("storage", cfg.StorageDriver).
		Int("history", hist.Len()).
		Msg("FraudShield ready")
	return nil
}

// applyFlags lets command-line flags override the environment
func (a *app) applyFlags(cfg *config.Config) {
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.driver != "" {
		cfg.StorageDriver = a.driver
	}
	if a.timeout > 0 {
		cfg.RequestTimeout = a.timeout
	}
}
