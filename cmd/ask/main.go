package main

import (
	"bufio"
	"context"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go-askbot/internal/app"
	"go-askbot/internal/config"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:          "ask <question>",
		Short:        "Answer a question from the database and the web",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.Orchestrator.Ask(cmd.Context(), strings.Join(args, " "), buffer.New())
			fmt.Fprintln(cmd.OutOrStdout(), st.FinalAnswer)
			return nil
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session that keeps conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build()
			if err != nil {
				return err
			}
			defer a.Close()
			return chat(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log agent activity to stderr")
	rootCmd.AddCommand(chatCmd)
}

func build() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := "warn"
	if verbose {
		level = cfg.LogLevel
	}
	if err := logger.NewGlobal(level, true); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return app.New(cfg)
}

func chat(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	history := buffer.New()
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "Ask a question, or type exit to quit.")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch q {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		st := a.Orchestrator.Ask(ctx, q, history)
		history = st.History
		fmt.Fprintln(out, st.FinalAnswer)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("ask failed")
		os.Exit(1)
	}
}
