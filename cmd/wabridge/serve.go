package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/wabridge/wabridge/internal/audio"
	"github.com/wabridge/wabridge/internal/chat"
	"github.com/wabridge/wabridge/internal/config"
	"github.com/wabridge/wabridge/internal/conversation"
	"github.com/wabridge/wabridge/internal/dispatch"
	"github.com/wabridge/wabridge/internal/logger"
	"github.com/wabridge/wabridge/internal/server"
	"github.com/wabridge/wabridge/internal/transcribe"
	"github.com/wabridge/wabridge/internal/webhook"
	"github.com/wabridge/wabridge/internal/whatsapp"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook bridge server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

func runServe(configPath string) {
	fx.New(
		fx.Provide(
			func() (config.Config, error) { return provideConfig(configPath) },
			provideLogger,
			provideStore,
			provideSweeper,
			provideWhatsAppClient,
			provideNormalizer,
			provideTranscriber,
			provideCompleter,
			provideDispatcher,
			provideWebhookHandler,
			provideServer,
		),
		fx.Invoke(
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig(path string) (config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.WhatsApp.AccessToken == "" {
		logger.L.Warn("WHATSAPP_TOKEN is not set; media and delivery calls will fail")
	}
	if cfg.OpenAI.APIKey == "" {
		logger.L.Warn("OPENAI_API_KEY is not set; completion and transcription calls will fail")
	}
	return logger.L
}

func provideStore(log *slog.Logger, cfg config.Config) (*conversation.Store, error) {
	ttl, err := cfg.Conversation.TTLDuration()
	if err != nil {
		return nil, err
	}
	return conversation.NewStore(log, cfg.Conversation.SystemPrompt,
		conversation.WithTTL(ttl),
		conversation.WithMaxSenders(cfg.Conversation.MaxSenders),
	), nil
}

func provideSweeper(log *slog.Logger, cfg config.Config, store *conversation.Store) (*conversation.Sweeper, error) {
	schedule := cfg.Conversation.SweepSchedule
	if schedule == "" {
		schedule = config.DefaultSweepSchedule
	}
	return conversation.NewSweeper(log, store, schedule)
}

func provideWhatsAppClient(log *slog.Logger, cfg config.Config) *whatsapp.Client {
	return whatsapp.NewClient(log, cfg.WhatsApp.GraphBaseURL, cfg.WhatsApp.APIVersion, cfg.WhatsApp.AccessToken, cfg.WhatsApp.Timeout())
}

func provideNormalizer(log *slog.Logger) *audio.Normalizer {
	return audio.NewNormalizer(log)
}

func provideTranscriber(log *slog.Logger, cfg config.Config, normalizer *audio.Normalizer) *transcribe.Transcriber {
	return transcribe.NewTranscriber(log, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.WhisperModel, cfg.OpenAI.Timeout(), normalizer)
}

func provideCompleter(log *slog.Logger, cfg config.Config) *chat.OpenAIProvider {
	return chat.NewOpenAIProvider(log, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature, cfg.OpenAI.Timeout())
}

func provideDispatcher(log *slog.Logger, client *whatsapp.Client, normalizer *audio.Normalizer, transcriber *transcribe.Transcriber, store *conversation.Store, completer *chat.OpenAIProvider) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(log, client, normalizer, transcriber, store, completer, client)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, dispatcher *dispatch.Dispatcher, store *conversation.Store) *webhook.Handler {
	return webhook.NewHandler(log, cfg.WhatsApp.VerifyToken, dispatcher, store)
}

func provideServer(log *slog.Logger, cfg config.Config, webhookHandler *webhook.Handler) *server.Server {
	return server.New(log, cfg.Server.Addr, []server.Handler{webhookHandler})
}

func startSweeper(lc fx.Lifecycle, sweeper *conversation.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, cfg config.Config, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("server starting", slog.String("addr", cfg.Server.Addr))
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
