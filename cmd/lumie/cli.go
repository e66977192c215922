package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var (
		showVersion bool
		configPath  string
		debug       bool
	)

	root := &cobra.Command{
		Use:   "lumie",
		Short: "Intent-matching chatbot with HTTP and Discord gateways",
		Long: strings.TrimSpace(`Lumie resolves user messages against a JSON intent corpus using exact
and fuzzy matching, tracks per-user conversation context, and replies
without repeating itself.

Use CLI commands to run the server, chat locally, or validate the
training data.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "lumie.json", "Path to JSON config file")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(newServeCommand(&configPath, &debug))
	root.AddCommand(newChatCommand(&configPath, &debug))
	root.AddCommand(newValidateCommand(&configPath))
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP gateway and enabled chat channels",
		Long:    "Load the intent corpus and serve the chat API, web client, Discord channel and periodic store sweeps.",
		Example: "  lumie serve --config lumie.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd(*configPath, *debug)
		},
	}
}

func newChatCommand(configPath *string, debug *bool) *cobra.Command {
	var (
		message string
		userID  string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the bot locally (CLI mode)",
		Long:  "Run an interactive local chat session or send a one-shot message without starting the server.",
		Example: strings.Join([]string{
			"  lumie chat",
			"  lumie chat --message \"show me the menu\"",
			"  lumie chat --user alice",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return chatCmd(*configPath, *debug, message, userID)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message to send")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id for session continuity (default: random)")

	return cmd
}

func newValidateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Short:   "Load the training data and report corpus statistics",
		Example: "  lumie validate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateCmd(*configPath)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  lumie version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}
