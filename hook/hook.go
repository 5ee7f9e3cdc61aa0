// Package hook adapts the evaluator to a PreToolUse permission hook: one
// JSON request on stdin, one JSON decision on stdout.
package hook

import (
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/jonchun/cmdgate/audit"
	"github.com/jonchun/cmdgate/evaluator"
)

const eventName = "PreToolUse"

// Request is the subset of the hook input envelope the adapter reads.
type Request struct {
	ToolName  string    `json:"tool_name"`
	ToolInput ToolInput `json:"tool_input"`
}

type ToolInput struct {
	Command string `json:"command"`
}

// Response is the hook output envelope. The decision mapping is fixed:
// deny blocks, ask requires confirmation, allow proceeds.
type Response struct {
	HookSpecificOutput Output `json:"hookSpecificOutput"`
}

type Output struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason"`
}

// Adapter runs one hook invocation. Audit is optional.
type Adapter struct {
	Engine *evaluator.Engine
	Audit  *audit.Store
	Logger *slog.Logger
}

// Run reads one request from in and writes at most one decision to out.
// Unparseable input and requests without a command produce no output: the
// adapter has no opinion and defers, rather than guessing allow or deny.
func (a *Adapter) Run(in io.Reader, out io.Writer) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Warn("deferring on unparseable hook input", "error", err.Error())
		return nil
	}
	if req.ToolInput.Command == "" {
		logger.Debug("deferring on request without command", "tool", req.ToolName)
		return nil
	}

	start := time.Now()
	verdict := a.Engine.Decide(req.ToolInput.Command)

	logger.Info("evaluate",
		"command", req.ToolInput.Command,
		"decision", string(verdict.Decision),
		"section", verdict.Section,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if a.Audit != nil {
		rec := audit.Record{
			Command:  req.ToolInput.Command,
			Decision: string(verdict.Decision),
			Reason:   verdict.Reason,
			Section:  verdict.Section,
		}
		if err := a.Audit.Save(rec); err != nil {
			logger.Warn("audit write failed", "error", err.Error())
		}
	}

	resp := Response{
		HookSpecificOutput: Output{
			HookEventName:            eventName,
			PermissionDecision:       string(verdict.Decision),
			PermissionDecisionReason: verdict.Reason,
		},
	}
	return json.NewEncoder(out).Encode(resp)
}
