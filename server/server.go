// Package server exposes the evaluator over MCP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonchun/cmdgate/audit"
	"github.com/jonchun/cmdgate/evaluator"
	"github.com/jonchun/cmdgate/parser"
	"github.com/jonchun/cmdgate/policy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Core wires the evaluator, the compiled policy, and optional auditing. The
// pattern set is read-only after construction, so tool calls may run
// concurrently without locking.
type Core struct {
	Engine *evaluator.Engine
	Set    *policy.PatternSet

	logger *slog.Logger
	audit  *audit.Store
}

type CoreOption func(*Core)

func WithAudit(store *audit.Store) CoreOption {
	return func(c *Core) { c.audit = store }
}

func NewCore(engine *evaluator.Engine, set *policy.PatternSet, logger *slog.Logger, opts ...CoreOption) *Core {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Core{
		Engine: engine,
		Set:    set,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Audit exposes the verdict store, if one is configured.
func (c *Core) Audit() *audit.Store {
	return c.audit
}

type EvaluateInput struct {
	Command string `json:"command" jsonschema:"Shell command to evaluate against the permission policy"`
}

type EvaluateResult struct {
	Decision          string   `json:"decision"`
	Reason            string   `json:"reason"`
	Section           string   `json:"section,omitempty"`
	EffectiveCommands []string `json:"effective_commands,omitempty"`
	SyntaxOK          bool     `json:"syntax_ok"`
	SyntaxDetail      string   `json:"syntax_detail,omitempty"`
}

type RulesInput struct {
	Tier string `json:"tier,omitempty" jsonschema:"Restrict to one tier: deny, ask, or allow"`
}

type RuleInfo struct {
	Tier    string `json:"tier"`
	Section string `json:"section"`
	Pattern string `json:"pattern"`
}

type RulesResult struct {
	Rules []RuleInfo `json:"rules"`
	Total int        `json:"total"`
}

// Evaluate runs one command through the evaluator. The syntax fields are an
// informational bash lint and never influence the decision.
func (c *Core) Evaluate(ctx context.Context, in EvaluateInput) (EvaluateResult, error) {
	if strings.TrimSpace(in.Command) == "" {
		return EvaluateResult{}, errors.New("command is required")
	}

	start := time.Now()
	verdict := c.Engine.Decide(in.Command)
	syntaxOK, syntaxDetail := parser.Lint(in.Command)

	c.logger.InfoContext(ctx, "evaluate",
		"command", in.Command,
		"decision", string(verdict.Decision),
		"section", verdict.Section,
		"syntax_ok", syntaxOK,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if c.audit != nil {
		rec := audit.Record{
			Command:  in.Command,
			Decision: string(verdict.Decision),
			Reason:   verdict.Reason,
			Section:  verdict.Section,
		}
		if err := c.audit.Save(rec); err != nil {
			c.logger.WarnContext(ctx, "audit write failed", "error", err.Error())
		}
	}

	return EvaluateResult{
		Decision:          string(verdict.Decision),
		Reason:            verdict.Reason,
		Section:           verdict.Section,
		EffectiveCommands: evaluator.EffectiveCommands(in.Command),
		SyntaxOK:          syntaxOK,
		SyntaxDetail:      syntaxDetail,
	}, nil
}

// ListRules returns the compiled policy inventory, optionally restricted to
// one tier.
func (c *Core) ListRules(in RulesInput) (RulesResult, error) {
	tiers := []struct {
		name     string
		patterns []policy.Pattern
	}{
		{policy.TierDeny, c.Set.Deny},
		{policy.TierAsk, c.Set.Ask},
		{policy.TierAllow, c.Set.Allow},
	}

	if in.Tier != "" && in.Tier != policy.TierDeny && in.Tier != policy.TierAsk && in.Tier != policy.TierAllow {
		return RulesResult{}, fmt.Errorf("unknown tier %q (want deny, ask, or allow)", in.Tier)
	}

	var rules []RuleInfo
	for _, tier := range tiers {
		if in.Tier != "" && in.Tier != tier.name {
			continue
		}
		for _, p := range tier.patterns {
			rules = append(rules, RuleInfo{
				Tier:    tier.name,
				Section: p.Section,
				Pattern: p.Original,
			})
		}
	}
	return RulesResult{Rules: rules, Total: len(rules)}, nil
}

type ServerOptions struct {
	// Name is the MCP server implementation name. Default: "cmdgate".
	Name string
	// Version is the MCP server implementation version. Default: "0.1.0".
	Version string
}

func NewMCPServer(core *Core, logger *slog.Logger, opts ...ServerOptions) *mcp.Server {
	name := "cmdgate"
	version := "0.1.0"
	if len(opts) > 0 {
		if opts[0].Name != "" {
			name = opts[0].Name
		}
		if opts[0].Version != "" {
			version = opts[0].Version
		}
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{Logger: logger})

	mcp.AddTool(srv, &mcp.Tool{
		Name: "evaluate",
		Description: "Evaluate a shell command against the permission policy. " +
			"Returns deny (block), ask (require confirmation), or allow (proceed), " +
			"with the matched rule section and the effective sub-commands that were checked. " +
			"The command is never executed.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in EvaluateInput) (*mcp.CallToolResult, EvaluateResult, error) {
		out, err := core.Evaluate(ctx, in)
		return nil, out, err
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "rules",
		Description: "List the compiled policy patterns by tier and section.",
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint: true,
		},
	}, func(_ context.Context, _ *mcp.CallToolRequest, in RulesInput) (*mcp.CallToolResult, RulesResult, error) {
		out, err := core.ListRules(in)
		return nil, out, err
	})

	return srv
}

func RunStdio(ctx context.Context, core *Core, logger *slog.Logger, opts ...ServerOptions) error {
	server := NewMCPServer(core, logger, opts...)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("run mcp stdio server: %w", err)
	}
	return nil
}

// NewHTTPHandler returns an http.Handler serving MCP over SSE.
func NewHTTPHandler(core *Core, logger *slog.Logger, opts ...ServerOptions) http.Handler {
	srv := NewMCPServer(core, logger, opts...)
	return mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
		return srv
	}, nil)
}
