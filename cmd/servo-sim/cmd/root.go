package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"tinygo.org/x/drivers/netlink"

	"servocode-go/services/config"
	"servocode-go/services/device"
	"servocode-go/services/hal"
	"servocode-go/services/httpd"
	"servocode-go/services/metrics"
	"servocode-go/x/logx"
)

var (
	// configPath is an optional YAML file overlaid on the embedded sim config.
	configPath string
	listenAddr string
	logLevel   string

	failInit  bool
	failJoin  string
	joinDelay time.Duration

	rootCmd = &cobra.Command{
		Use:   "servo-sim",
		Short: "Run the servo firmware against simulated hardware.",
		Long: `Runs the full bring-up sequence on the host: simulated radio, LED and PWM.

The status LED is logged at debug level. Once serving, /servo?action=on|off
drives the simulated servo, /status reports state and /metrics exposes
Prometheus counters. Failure flags make the radio fail so the error-halt
path can be observed.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return run(ctx)
		},
	}
)

// joinErrors maps --fail-join values to the driver errors they simulate.
var joinErrors = map[string]error{
	"":        nil,
	"auth":    netlink.ErrAuthFailure,
	"timeout": netlink.ErrConnectTimeout,
	"failed":  netlink.ErrConnectFailed,
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load("sim")
	if err != nil {
		return cfg, err
	}
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return cfg, err
		}
		if err := cfg.Merge(raw); err != nil {
			return cfg, err
		}
	}
	if listenAddr != "" {
		cfg.HTTP.Addr = listenAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context) error {
	defer logx.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	lvl, ok := logx.ParseLevel(cfg.Log.Level)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.Log.Level)
	}
	logx.SetLevel(lvl)

	joinErr, ok := joinErrors[failJoin]
	if !ok {
		return fmt.Errorf("unknown --fail-join value %q", failJoin)
	}
	radio := &hal.SimRadio{FailInit: failInit, JoinErr: joinErr, JoinDelay: joinDelay}
	p, err := hal.OpenSim(hal.Options{}, radio)
	if err != nil {
		return err
	}

	rec := metrics.New()
	d, err := device.Assemble(cfg, p, device.Options{
		Recorder: rec,
		OnStage:  rec.Stage,
		Mount:    func(s *httpd.Server) { s.Handle("/metrics", rec.Handler()) },
	})
	if err != nil {
		device.Halt(ctx, p, err)
		return err
	}

	stage, err := d.Run(ctx)
	logx.Info("stopped", "stage", stage.String())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Execute runs the servo-sim CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file overlaid on the embedded sim config")
	rootCmd.Flags().StringVarP(&listenAddr, "addr", "a", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "debug, info, warn or error (overrides config)")
	rootCmd.Flags().BoolVar(&failInit, "fail-init", false, "make radio initialisation fail")
	rootCmd.Flags().StringVar(&failJoin, "fail-join", "", "make the network join fail: auth, timeout or failed")
	rootCmd.Flags().DurationVar(&joinDelay, "join-delay", 0, "simulated association time; beyond the join timeout the join times out")
}
