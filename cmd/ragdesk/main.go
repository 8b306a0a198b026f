package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/ragdesk/ai"
	"github.com/hrygo/ragdesk/chat"
	"github.com/hrygo/ragdesk/internal/profile"
	"github.com/hrygo/ragdesk/internal/version"
	"github.com/hrygo/ragdesk/metrics"
	"github.com/hrygo/ragdesk/plugin/telegram"
	"github.com/hrygo/ragdesk/server"
	apiv1 "github.com/hrygo/ragdesk/server/router/api/v1"
	"github.com/hrygo/ragdesk/service"
	"github.com/hrygo/ragdesk/store"
	"github.com/hrygo/ragdesk/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "ragdesk",
	Short: `A RAG chat dashboard server: chat with an AI assistant, optionally grounded on your uploaded documents.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd deployments configure through the unit environment.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		if !instanceProfile.IsAIEnabled() {
			slog.Error("no LLM API key configured, set RAGDESK_AI_LLM_API_KEY")
			return
		}

		aiConfig := ai.NewConfigFromProfile(instanceProfile)
		if err := aiConfig.Validate(); err != nil {
			slog.Error("invalid AI configuration", "error", err)
			return
		}
		llmService, err := ai.NewLLMService(&aiConfig.LLM)
		if err != nil {
			slog.Error("failed to initialize LLM service", "error", err)
			return
		}
		embeddingService, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			slog.Error("failed to initialize embedding service", "error", err)
			return
		}
		slog.Info("AI services initialized",
			"llm_provider", aiConfig.LLM.Provider,
			"llm_model", aiConfig.LLM.Model,
			"embedding_model", aiConfig.Embedding.Model,
		)

		notifications := service.NewNotificationService(storeInstance, nil)
		conversations := service.NewConversationService(storeInstance, nil)
		catalog := service.NewCatalog(storeInstance, embeddingService, notifications, nil)
		completion := service.NewCompletion(llmService, embeddingService, storeInstance, nil)
		titler := service.NewTitleSuggester(ai.NewTitleGenerator(llmService))

		registry := chat.NewRegistry(nil, time.Duration(instanceProfile.SessionIdleMinutes)*time.Minute)
		defer registry.Shutdown()

		chatMetrics := metrics.NewChatMetrics(registry.Len)
		dispatcher := chat.NewDispatcher(completion, conversations, nil,
			chat.WithTitler(titler),
			chat.WithRecorder(chatMetrics),
		)

		api := apiv1.NewAPIV1Service(instanceProfile, registry, dispatcher, conversations, catalog, notifications)
		s := server.NewServer(instanceProfile, storeInstance, api, chatMetrics)

		if instanceProfile.TelegramBotToken != "" {
			bot, err := telegram.NewBot(instanceProfile.TelegramBotToken, registry, dispatcher, catalog, nil)
			if err != nil {
				slog.Error("failed to initialize telegram bot", "error", err)
			} else {
				go func() {
					if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
						slog.Error("telegram bot stopped", "error", err)
					}
				}()
			}
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is what most process managers send for a graceful stop.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				cancel()
			}
		}

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 28091)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28091, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("ragdesk")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Ragdesk %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
