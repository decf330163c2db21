package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/flare/pkg/chat"
	"github.com/go-go-golems/flare/pkg/flares"
	"github.com/go-go-golems/flare/pkg/providers"
	"github.com/go-go-golems/flare/pkg/providers/openai"
	"github.com/go-go-golems/flare/pkg/transcript"
)

var (
	configFile     string
	logLevel       string
	flaresDir      string
	transcriptsDir string
)

var rootCmd = &cobra.Command{
	Use:   "flare",
	Short: "Multi-persona conversational assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one message to a flare and print the response",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		resolver := providers.NewResolver(registry, openai.Factory)
		loader := flares.NewLoader(flaresDir, registry, resolver)
		store := transcript.NewStore(transcriptsDir)

		orchestrator := chat.NewOrchestrator(loader, resolver, store,
			chat.WithAutosave(true),
			chat.WithDefaultFlare(viper.GetString("default_flare")),
		)

		if title, _ := cmd.Flags().GetString("resume"); title != "" {
			t, err := store.Load(title)
			if err != nil {
				return err
			}
			orchestrator.SetTranscript(t)
		}

		flareName, _ := cmd.Flags().GetString("flare")
		stream, _ := cmd.Flags().GetBool("stream")

		opts := &chat.Options{Flare: flareName}
		if stream {
			opts.OnToken = func(token string) {
				fmt.Print(token)
			}
		}

		result := orchestrator.HandleMessage(cmd.Context(), args[0], opts)
		if !stream || result.Stopped {
			fmt.Println(result.Content)
		} else {
			fmt.Println()
		}
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Inspect stored transcripts",
}

var transcriptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := transcript.NewStore(transcriptsDir)
		for _, title := range store.List() {
			fmt.Println(title)
		}
		return nil
	},
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show [title]",
	Short: "Print a transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := transcript.NewStore(transcriptsDir)
		t, err := store.Load(args[0])
		if err != nil {
			return err
		}
		for _, m := range t.Messages {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
		return nil
	},
}

func loadRegistry() (*providers.Registry, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("flare")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.flare")
	}
	viper.SetEnvPrefix("FLARE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Warn().Msg("no config file found, starting with an empty provider registry")
	}

	var entries []*providers.Entry
	if err := viper.UnmarshalKey("providers", &entries); err != nil {
		return nil, err
	}

	return providers.NewRegistry(entries, viper.GetString("default_provider")), nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./flare.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flaresDir, "flares-dir", "flares", "directory containing flare definitions")
	rootCmd.PersistentFlags().StringVar(&transcriptsDir, "transcripts-dir", "transcripts", "directory containing transcripts")

	chatCmd.Flags().String("flare", "", "flare to use for this message")
	chatCmd.Flags().String("resume", "", "resume the transcript with this title")
	chatCmd.Flags().Bool("stream", false, "stream tokens as they arrive")

	transcriptCmd.AddCommand(transcriptListCmd, transcriptShowCmd)
	rootCmd.AddCommand(chatCmd, transcriptCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
