package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/bus"
	"github.com/musagithub1/python-code-assistant-ai-bot/pkg/channels"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "assistant",
		Short: "Python coding assistant with terminal, web, and Discord frontends",
		Long: strings.TrimSpace(`assistant is an AI Python coding helper.

It keeps a scored context window per conversation, extracts and categorizes
code from replies, and can execute Python snippets with a timeout.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newChatCommand(&configPath, &verbose))
	root.AddCommand(newWebCommand(&configPath, &verbose))
	root.AddCommand(newDiscordCommand(&configPath, &verbose))
	root.AddCommand(newExecCommand(&configPath, &verbose))
	root.AddCommand(newVersionCommand())

	return root
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newChatCommand(configPath *string, verbose *bool) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive terminal chat session",
		Example: strings.Join([]string{
			"  assistant chat",
			"  assistant chat --message \"reverse a list in python\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			if strings.TrimSpace(message) != "" {
				reply, err := a.assistant.Respond(ctx, "terminal:default", message, nil)
				if err != nil {
					return err
				}
				fmt.Println(reply)
				return nil
			}

			terminal := channels.NewTerminalChannel(a.assistant, a.cfg.UI.BotName, a.log)
			return terminal.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot prompt instead of the interactive loop")
	return cmd
}

func newWebCommand(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "web",
		Short:   "Serve the browser chat UI and JSON API",
		Example: "  assistant web --config config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			go func() {
				if err := a.assistant.RunMaintenance(ctx); err != nil {
					a.log.Error().Err(err).Msg("maintenance loop")
				}
			}()

			web := channels.NewWebChannel(a.assistant, a.cfg.Web, a.cfg.UI.BotName, a.log)
			return web.Run(ctx)
		},
	}
}

func newDiscordCommand(configPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "discord",
		Short:   "Run the Discord gateway",
		Example: "  assistant discord --verbose",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			messageBus := bus.NewMessageBus()
			defer messageBus.Close()

			manager, err := channels.NewManager(a.cfg, messageBus, a.assistant, a.log)
			if err != nil {
				return err
			}
			if err := manager.StartAll(ctx); err != nil {
				return err
			}
			defer manager.StopAll(context.Background())

			go func() {
				if err := a.assistant.RunMaintenance(ctx); err != nil {
					a.log.Error().Err(err).Msg("maintenance loop")
				}
			}()

			a.log.Info().Msg("discord gateway running, Ctrl+C to stop")
			<-ctx.Done()
			return nil
		},
	}
}

func newExecCommand(configPath *string, verbose *bool) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "exec [code]",
		Short: "Execute a Python snippet with the configured timeout",
		Example: strings.Join([]string{
			"  assistant exec \"print('hi')\"",
			"  assistant exec --file snippet.py",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer a.Close()

			var snippet string
			switch {
			case file != "":
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read snippet file: %w", err)
				}
				snippet = string(raw)
			case len(args) > 0:
				snippet = strings.Join(args, " ")
			default:
				return fmt.Errorf("provide code as an argument or with --file")
			}

			ctx, cancel := signalContext()
			defer cancel()

			res, err := a.assistant.ExecuteCode(ctx, snippet)
			if err != nil {
				return err
			}
			if res.Output != "" {
				fmt.Print(res.Output)
			}
			if res.Error != "" {
				fmt.Fprint(os.Stderr, res.Error)
			}
			if !res.Success {
				return fmt.Errorf("execution failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the snippet from a file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("assistant %s (%s)\n", version, commit)
			return nil
		},
	}
}
