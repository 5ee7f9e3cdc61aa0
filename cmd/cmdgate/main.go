// Command cmdgate evaluates shell commands against a permission policy, as an
// MCP stdio server, a PreToolUse hook, or a one-shot CLI check.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonchun/cmdgate"
	"github.com/jonchun/cmdgate/evaluator"
	"github.com/jonchun/cmdgate/hook"
	"github.com/jonchun/cmdgate/parser"
	"github.com/jonchun/cmdgate/policy"
	"github.com/jonchun/cmdgate/server"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		logger.Error("cmdgate failed", "error", err)
		os.Exit(1)
	}
}

// exitError carries a process exit code without an error message; check uses
// it to report the verdict through the exit status.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var rulesFile string

	root := &cobra.Command{
		Use:           "cmdgate",
		Short:         "Permission gate for shell commands",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rulesFile, "rules", "", "path to a YAML rules file (default: user config, then embedded policy)")

	loadRules := func() (*policy.PatternSet, error) {
		if rulesFile == "" {
			return nil, nil
		}
		return policy.LoadFile(rulesFile, logger)
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadRules()
			if err != nil {
				return err
			}
			err = cmdgate.RunStdio(cmd.Context(), cmdgate.Config{
				Rules:  set,
				Logger: logger,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Evaluate one PreToolUse request from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := buildCore(logger, loadRules)
			if err != nil {
				return err
			}
			adapter := &hook.Adapter{
				Engine: core.Engine,
				Audit:  core.Audit(),
				Logger: logger,
			}
			return adapter.Run(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	check := &cobra.Command{
		Use:   "check <command>",
		Short: "Evaluate a command and report the verdict",
		Long: "Evaluate a command and print its verdict. The exit status encodes " +
			"the decision: 0 allow, 1 ask, 2 deny.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			core, err := buildCore(logger, loadRules)
			if err != nil {
				return err
			}
			command := strings.Join(args, " ")
			verdict := core.Engine.Decide(command)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", verdict.Decision, verdict.Reason)
			if ok, detail := parser.Lint(command); !ok {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: does not parse as bash: %s\n", detail)
			}
			switch verdict.Decision {
			case evaluator.Allow:
				return nil
			case evaluator.Ask:
				return &exitError{code: 1}
			default:
				return &exitError{code: 2}
			}
		},
	}

	rules := &cobra.Command{
		Use:   "rules",
		Short: "List the compiled policy patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := buildCore(logger, loadRules)
			if err != nil {
				return err
			}
			result, err := core.ListRules(server.RulesInput{})
			if err != nil {
				return err
			}
			for _, r := range result.Rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s  %-30s  %s\n", r.Tier, r.Section, r.Pattern)
			}
			return nil
		},
	}

	root.AddCommand(serve, hookCmd, check, rules)
	return root
}

func buildCore(logger *slog.Logger, loadRules func() (*policy.PatternSet, error)) (*server.Core, error) {
	set, err := loadRules()
	if err != nil {
		return nil, err
	}
	return cmdgate.New(cmdgate.Config{
		Rules:  set,
		Logger: logger,
	})
}
