// Package cmdgate decides whether shell commands should run: each command is
// evaluated against a three-tier regex policy and answered with deny, ask, or
// allow. Commands are never executed.
package cmdgate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonchun/cmdgate/audit"
	"github.com/jonchun/cmdgate/config"
	"github.com/jonchun/cmdgate/evaluator"
	"github.com/jonchun/cmdgate/policy"
	"github.com/jonchun/cmdgate/server"
)

type Config struct {
	// Rules is the compiled policy. If nil, the user's configured rules file
	// is loaded, falling back to the embedded default policy.
	Rules *policy.PatternSet

	// Logger is the structured logger passed to Core. If nil, a discard
	// logger is used.
	Logger *slog.Logger

	// Name overrides the MCP server implementation name (default: "cmdgate").
	Name string

	// Version overrides the MCP server implementation version (default: "0.1.0").
	Version string
}

// New builds a Core, loading policy rules and user config from cfg.
func New(cfg Config) (*server.Core, error) {
	userCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load user config: %w", err)
	}

	set := cfg.Rules
	if set == nil {
		if userCfg.RulesFile != nil {
			set, err = policy.LoadFile(*userCfg.RulesFile, cfg.Logger)
			if err != nil {
				return nil, fmt.Errorf("load rules from %s: %w", *userCfg.RulesFile, err)
			}
		} else {
			set, err = policy.LoadEmbedded(cfg.Logger)
			if err != nil {
				return nil, fmt.Errorf("load embedded rules: %w", err)
			}
		}
	}

	var engineOpts []evaluator.Option
	if userCfg.ReasonMaxChars != nil {
		engineOpts = append(engineOpts, evaluator.WithReasonMaxChars(*userCfg.ReasonMaxChars))
	}
	engine := evaluator.New(set, engineOpts...)

	var coreOpts []server.CoreOption
	if userCfg.AuditDB != nil {
		store, err := audit.Open(*userCfg.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		coreOpts = append(coreOpts, server.WithAudit(store))
	}

	return server.NewCore(engine, set, cfg.Logger, coreOpts...), nil
}

// RunStdio creates a server from cfg and runs it over stdin/stdout. Server
// identity comes from cfg, then the user config's server section, then the
// built-in defaults.
func RunStdio(ctx context.Context, cfg Config) error {
	core, err := New(cfg)
	if err != nil {
		return err
	}

	opts := server.ServerOptions{Name: cfg.Name, Version: cfg.Version}
	if userCfg, err := config.Load(); err == nil && userCfg.Server != nil {
		if opts.Name == "" && userCfg.Server.Name != nil {
			opts.Name = *userCfg.Server.Name
		}
		if opts.Version == "" && userCfg.Server.Version != nil {
			opts.Version = *userCfg.Server.Version
		}
	}
	return server.RunStdio(ctx, core, cfg.Logger, opts)
}
