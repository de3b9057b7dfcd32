package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/travelbook/internal/checkout"
	"github.com/example/travelbook/internal/config"
	"github.com/example/travelbook/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the checkout JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.RequireCookieKeys(); err != nil {
				return err
			}
			log := newLogger(cfg, os.Stderr)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			api, err := newAPIClient(cfg, log)
			if err != nil {
				return err
			}
			profiles, closeProfiles, err := openProfiles(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeProfiles()

			opts := []checkout.Option{
				checkout.WithLogger(log),
				checkout.WithHoldSeconds(cfg.HoldSeconds),
			}
			if strict || cfg.StrictTravelers {
				opts = append(opts, checkout.WithStrictTravelers())
			}
			sessions := checkout.NewRegistry(ctx, checkout.RegistryConfig{
				IdleTTL:     cfg.SessionIdleTTL,
				MaxSessions: cfg.MaxSessions,
				Log:         log,
			}, opts...)
			defer sessions.CloseAll()
			go func() { _ = sessions.Run(ctx, time.Minute) }()

			ws := &web.Server{
				Catalog:  api,
				Sessions: sessions,
				Profiles: profiles,
				Cookies:  web.NewSessionCookie(cfg.CookieHashKey, cfg.CookieBlockKey),
				Retry:    retryConfig(cfg, log),
				Log:      log,
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), log)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict-travelers", false, "require traveler names before payment")
	return cmd
}
