// Copyright 2025 The AgentWire Authors
// SPDX-License-Identifier: Apache-2.0

// Dicebot is an example agent that rolls dice. It serves the agent
// protocol over HTTP and also ships a small client for talking to a
// running instance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentwire/agentwire"
	"github.com/agentwire/agentwire/client"
	"github.com/agentwire/agentwire/server"
)

var rootCmd = &cobra.Command{
	Use:          "dicebot",
	Short:        "dicebot rolls dice over the agent protocol",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dicebot agent server",
	RunE:  runServe,
}

var rollCmd = &cobra.Command{
	Use:   "roll [notation]",
	Short: "Ask a running dicebot to roll, e.g. dicebot roll 2d6",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRoll,
}

var (
	flagAddr     string
	flagAgentURL string
	flagStream   bool
)

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides DICEBOT_ADDR)")
	rollCmd.Flags().StringVar(&flagAgentURL, "agent", "http://localhost:8080", "base URL of the dicebot agent")
	rollCmd.Flags().BoolVar(&flagStream, "stream", false, "stream task updates instead of waiting")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rollCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func agentCard(url string) *agentwire.AgentCard {
	return &agentwire.AgentCard{
		Name:        "dicebot",
		Description: "Rolls dice described in plain text, like d20 or 3d6.",
		URL:         url,
		Version:     "0.1.0",
		Capabilities: agentwire.AgentCapabilities{
			Streaming:         true,
			PushNotifications: true,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []agentwire.AgentSkill{{
			ID:          "roll",
			Name:        "Roll dice",
			Description: "Rolls dice in standard notation and reports the total.",
			Tags:        []string{"dice", "games"},
			Examples:    []string{"roll a d20", "roll 3d6"},
		}},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := server.New(agentCard(cfg.PublicURL), NewDiceExecutor(),
		server.WithAddress(cfg.Addr),
		server.WithLogger(logger),
		server.WithSendTimeout(cfg.SendTimeout),
		server.WithWatchdog(cfg.IdleTimeout, 0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func runRoll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, card, err := client.NewFromCard(ctx, flagAgentURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "connected to %s %s\n", card.Name, card.Version)

	params := &agentwire.MessageSendParams{
		Message: agentwire.NewUserMessage("roll " + args[0]),
	}
	if flagStream {
		return streamRoll(ctx, cmd, c, params)
	}

	result, err := c.SendMessage(ctx, params)
	if err != nil {
		return err
	}
	printResult(cmd, result)
	return nil
}

func streamRoll(ctx context.Context, cmd *cobra.Command, c *client.Client, params *agentwire.MessageSendParams) error {
	stream, err := c.SendMessageStream(ctx, params)
	if err != nil {
		return err
	}
	defer stream.Close()

	for ev := range stream.Events() {
		printResult(cmd, ev)
	}
	return stream.Err()
}

func printResult(cmd *cobra.Command, ev agentwire.Event) {
	out := cmd.OutOrStdout()
	switch e := ev.(type) {
	case *agentwire.Task:
		fmt.Fprintf(out, "task %s: %s\n", e.ID, e.Status.State)
		if text := agentwire.MessageText(e.Status.Message); text != "" {
			fmt.Fprintln(out, text)
		}
		for _, a := range e.Artifacts {
			if text := agentwire.ArtifactText(a); text != "" {
				fmt.Fprintln(out, text)
			}
		}
	case *agentwire.Message:
		fmt.Fprintln(out, agentwire.MessageText(e))
	case *agentwire.TaskStatusUpdateEvent:
		fmt.Fprintf(out, "task %s: %s\n", e.TaskID, e.Status.State)
		if text := agentwire.MessageText(e.Status.Message); text != "" {
			fmt.Fprintln(out, text)
		}
	case *agentwire.TaskArtifactUpdateEvent:
		if text := agentwire.ArtifactText(e.Artifact); text != "" {
			fmt.Fprintln(out, text)
		}
	}
}
