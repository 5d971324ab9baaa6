package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/gemkit/internal/logging"
)

// MaxTurns caps the number of sends in one orchestration run.
const MaxTurns = 10

// CallHandler runs a request to completion: it sends it, executes the
// function calls the model asks for, feeds their results back and repeats
// until the model answers without calls, refuses, or MaxTurns is reached.
//
// A CallHandler holds no per-run state and may be shared.
type CallHandler struct {
	client *Client
	logger *slog.Logger
}

// resolvedCall is a function call matched to its tool, ready to run.
type resolvedCall struct {
	tool ToolDefinition
	call ToolCall
}

// HandleRequest runs req. With useBackoff each send retries transient
// transport failures. ctx governs every turn of the run.
//
// The returned error wraps one of [ErrRequestRejected],
// [ErrResponseUnusable] or [ErrTurnLimitExceeded], a transport error, or a
// tool callback error. A refusal is not an error: the refusing response is
// returned.
func (h *CallHandler) HandleRequest(ctx context.Context, req *Request, useBackoff bool) (*Response, error) {
	if req == nil {
		return nil, configErrorf("nil request")
	}

	runID := uuid.NewString()
	logger := logging.FromContext(ctx, h.logger).With(slog.String("run_id", runID), slog.String("model", req.model))

	messages := cloneMessages(req.messages)
	tools := make(map[string]ToolDefinition, len(req.tools))
	for _, t := range req.tools {
		if _, dup := tools[t.name]; dup {
			logger.WarnContext(ctx, "duplicate tool name, last definition wins", slog.String("tool", t.name))
		}
		tools[t.name] = t
	}

	current := req
	for turn := 1; ; turn++ {
		if turn > MaxTurns {
			logger.ErrorContext(ctx, "turn limit exceeded", slog.Int("max_turns", MaxTurns))
			return nil, fmt.Errorf("%w: no final answer after %d turns", ErrTurnLimitExceeded, MaxTurns)
		}

		logger.DebugContext(ctx, "sending turn", slog.Int("turn", turn), slog.Int("messages", len(current.messages)))
		resp, err := h.client.send(ctx, current, useBackoff)
		if err != nil {
			return nil, err
		}

		if resp.HasError() {
			return nil, &RequestRejectedError{Payload: append(json.RawMessage(nil), resp.JSON()...)}
		}

		if resp.HasRefusal() {
			logger.InfoContext(ctx, "model refused", slog.Int("turn", turn))
			return resp, nil
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			logger.DebugContext(ctx, "final answer", slog.Int("turn", turn), slog.String("finish_reason", resp.FinishReason()))
			return resp, nil
		}

		resolved, err := resolveCalls(calls, tools)
		if err != nil {
			logger.ErrorContext(ctx, "unusable function calls", slog.Int("turn", turn), slog.String("error", err.Error()))
			return nil, err
		}

		parts, err := h.runCalls(ctx, logger, resolved)
		if err != nil {
			return nil, err
		}

		modelContent, ok := resp.Content()
		if !ok {
			return nil, unusableErrorf("function calls without a readable candidate content")
		}
		messages = append(messages, modelContent, Message{Role: RoleUser, Parts: parts})

		current = req.withMessages(messages)
	}
}

// resolveCalls matches every call to a registered tool and checks its
// arguments before anything runs.
func resolveCalls(calls []FunctionCall, tools map[string]ToolDefinition) ([]resolvedCall, error) {
	resolved := make([]resolvedCall, 0, len(calls))
	for i, fc := range calls {
		if strings.TrimSpace(fc.Name) == "" {
			return nil, unusableErrorf("function call %d has no tool name", i)
		}
		tool, ok := tools[fc.Name]
		if !ok {
			return nil, unusableErrorf("unknown tool %q", fc.Name)
		}
		if !isJSONObject(fc.Args) {
			return nil, unusableErrorf("arguments of %q are missing or not an object", fc.Name)
		}
		resolved = append(resolved, resolvedCall{
			tool: tool,
			call: ToolCall{Name: fc.Name, Args: fc.Args},
		})
	}
	return resolved, nil
}

// runCalls invokes the callbacks one after another, in call order, and
// returns one functionResponse part per call.
func (h *CallHandler) runCalls(ctx context.Context, logger *slog.Logger, calls []resolvedCall) ([]Part, error) {
	parts := make([]Part, 0, len(calls))
	for _, rc := range calls {
		start := time.Now()
		result, err := rc.tool.Invoke(ctx, rc.call)
		if err != nil {
			logger.ErrorContext(ctx, "tool failed",
				slog.String("tool", rc.call.Name),
				slog.Duration("duration", time.Since(start)),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("tool %q: %w", rc.call.Name, err)
		}
		logger.InfoContext(ctx, "tool executed",
			slog.String("tool", rc.call.Name),
			slog.Duration("duration", time.Since(start)),
		)

		payload, err := result.payload()
		if err != nil {
			return nil, fmt.Errorf("tool %q: encode result: %w", rc.call.Name, err)
		}
		parts = append(parts, Part{FunctionResponse: &FunctionResponse{Name: rc.call.Name, Response: payload}})
	}
	return parts, nil
}

func isJSONObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
