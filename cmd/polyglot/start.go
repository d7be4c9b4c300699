package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/polyglot/internal/admin"
	"github.com/zulandar/polyglot/internal/cache"
	"github.com/zulandar/polyglot/internal/chat/discord"
	"github.com/zulandar/polyglot/internal/config"
	"github.com/zulandar/polyglot/internal/relay"
	"github.com/zulandar/polyglot/internal/translate"
	"github.com/zulandar/polyglot/internal/translate/gemini"
	"github.com/zulandar/polyglot/internal/translate/openai"
	"github.com/zulandar/polyglot/internal/webhook"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay daemon",
		Long:  "Connects to Discord, relays and translates messages between linked channels, and serves the admin endpoints when admin.port is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to polyglot config file")
	return cmd
}

func runStart(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close(context.Background())
	fmt.Fprintf(out, "Store: %s\n", s.describe)

	translator, err := createTranslator(cfg.Translator)
	if err != nil {
		return err
	}

	adapter, err := discord.New(discord.AdapterOpts{BotToken: cfg.Discord.Token})
	if err != nil {
		return err
	}
	hooks, err := webhook.NewCache(adapter, cfg.Discord.WebhookName)
	if err != nil {
		return err
	}

	configCache := cache.NewConfig(s.channels)
	r, err := relay.New(relay.Opts{
		Links:         s.links,
		Config:        configCache,
		Webhooks:      hooks,
		Fetcher:       adapter,
		Translator:    translator,
		PreviewLength: cfg.Relay.PreviewLength,
	})
	if err != nil {
		return err
	}

	daemon, err := relay.NewDaemon(relay.DaemonOpts{
		Adapter:   adapter,
		Relay:     r,
		Config:    configCache,
		FlushCron: cfg.Cache.FlushCron,
		Out:       out,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if cfg.Admin.Port > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := admin.Start(ctx, admin.StartOpts{
				Links:  s.links,
				Config: configCache,
				Port:   cfg.Admin.Port,
				Out:    out,
			}); err != nil {
				log.Printf("polyglot: admin server: %v", err)
			}
		}()
	}

	err = daemon.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// createTranslator builds the configured provider wrapped with rate limiting
// and latency metrics.
func createTranslator(cfg config.TranslatorConfig) (translate.Translator, error) {
	var (
		provider translate.Translator
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider, err = openai.New(openai.ProviderConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case config.ProviderGemini:
		provider, err = gemini.New(gemini.ProviderConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported translator provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return translate.NewTimed(translate.NewLimited(provider, cfg.RatePerSec, cfg.Burst)), nil
}
