package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/allocmesh/internal/prompt"
	"github.com/hupe1980/allocmesh/internal/schema"
	"github.com/hupe1980/allocmesh/logging"
	"github.com/hupe1980/allocmesh/model"
	"github.com/hupe1980/allocmesh/tool"
)

// ErrSchemaViolation marks a model reply that did not conform to the agent's
// output schema. The reply is rejected rather than trusted; callers fall back
// to their deterministic path.
var ErrSchemaViolation = errors.New("model reply violates output schema")

// Config declares an agent as data: who it is, what it is asked to do and
// what shape its answer must have. Instruction templates use text/template
// syntax and are rendered with the per-call context data.
type Config struct {
	Name         string
	Role         string
	Goal         string
	Instructions string         // system prompt template
	Task         string         // user prompt template
	OutputSchema map[string]any // nil for free-form text replies
	Tools        []tool.Tool
}

// Result is the outcome of a single agent execution. ToolsUsed lists the
// names of tools the model actually called, in call order; callers that need
// enforcement check this instead of any shared flag.
type Result struct {
	Text      string
	Output    map[string]any // validated structured reply, nil for free-form agents
	ToolsUsed []string
	Usage     model.TokenUsage
}

// UsedTool reports whether the named tool was called during the execution.
func (r *Result) UsedTool(name string) bool {
	for _, used := range r.ToolsUsed {
		if used == name {
			return true
		}
	}
	return false
}

// Decode unmarshals the validated structured output into a typed value.
func (r *Result) Decode(v any) error {
	if r.Output == nil {
		return fmt.Errorf("agent result has no structured output")
	}
	raw, err := json.Marshal(r.Output)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Options configure an Agent beyond its Config.
type Options struct {
	// MaxToolRounds bounds how many times the model may request tools in a
	// single execution before the agent gives up on the conversation.
	MaxToolRounds int
	Logger        logging.Logger
}

// Agent binds a Config to a model. Safe to reuse across executions; each
// execution is independent.
type Agent struct {
	cfg           Config
	llm           model.Model
	maxToolRounds int
	logger        logging.Logger
	tools         map[string]tool.Tool
}

// New creates an agent from its declarative config and a model.
func New(cfg Config, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{MaxToolRounds: 4, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	tools := make(map[string]tool.Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools[t.Name()] = t
	}
	return &Agent{
		cfg:           cfg,
		llm:           llm,
		maxToolRounds: opts.MaxToolRounds,
		logger:        opts.Logger,
		tools:         tools,
	}
}

// Name returns the agent's configured name.
func (a *Agent) Name() string { return a.cfg.Name }

// Execute runs one request/response exchange with the model, serving tool
// calls in between, and validates the structured reply when the config
// declares an output schema.
func (a *Agent) Execute(ctx context.Context, data map[string]any) (*Result, error) {
	instructions, err := a.systemPrompt(data)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.cfg.Name, err)
	}
	task, err := prompt.Render(a.cfg.Task, data)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.cfg.Name, err)
	}

	req := model.Request{
		Instructions: instructions,
		Messages:     []model.Message{model.UserMessage(task)},
	}
	for _, t := range a.cfg.Tools {
		req.Tools = append(req.Tools, tool.Definition(t))
	}

	result := &Result{}
	resp, err := a.converse(ctx, req, result)
	if err != nil {
		return nil, err
	}
	result.Text = resp.Text

	if a.cfg.OutputSchema != nil {
		output, err := decodeStructured(resp.Text, a.cfg.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.cfg.Name, err)
		}
		result.Output = output
	}
	return result, nil
}

// converse drives the generate/tool-call loop until the model produces a
// final reply or the tool round budget is exhausted.
func (a *Agent) converse(ctx context.Context, req model.Request, result *Result) (*model.Response, error) {
	for round := 0; ; round++ {
		start := time.Now()
		resp, err := a.llm.Generate(ctx, req)
		if err != nil {
			a.logger.Error("model call failed", "agent", a.cfg.Name, "error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds())
			return nil, fmt.Errorf("agent %s: model call: %w", a.cfg.Name, err)
		}
		if resp.Usage != nil {
			result.Usage.PromptTokens += resp.Usage.PromptTokens
			result.Usage.CompletionTokens += resp.Usage.CompletionTokens
			result.Usage.TotalTokens += resp.Usage.TotalTokens
		}
		if resp.FinishReason != model.FinishToolCalls || len(resp.ToolCalls) == 0 {
			return resp, nil
		}
		if round >= a.maxToolRounds {
			return nil, fmt.Errorf("agent %s: tool round budget (%d) exhausted", a.cfg.Name, a.maxToolRounds)
		}

		req.Messages = append(req.Messages, model.AssistantMessage(resp.Text, resp.ToolCalls...))
		for _, call := range resp.ToolCalls {
			req.Messages = append(req.Messages, a.serveToolCall(ctx, call, result))
		}
	}
}

// serveToolCall executes one requested tool and wraps the outcome as a tool
// message. Tool failures are reported back to the model as text so it can
// correct itself; they do not abort the execution.
func (a *Agent) serveToolCall(ctx context.Context, call model.ToolCall, result *Result) model.Message {
	t, ok := a.tools[call.Name]
	if !ok {
		a.logger.Warn("model requested unknown tool", "agent", a.cfg.Name, "tool", call.Name)
		return model.ToolMessage(call.ID, fmt.Sprintf("error: no tool named %s", call.Name))
	}

	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return model.ToolMessage(call.ID, fmt.Sprintf("error: malformed arguments: %v", err))
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	out, err := t.Call(ctx, args)
	if err != nil {
		a.logger.Warn("tool call failed", "agent", a.cfg.Name, "tool", call.Name,
			"duration_ms", time.Since(start).Milliseconds(), "error", err.Error())
		return model.ToolMessage(call.ID, fmt.Sprintf("error: %v", err))
	}
	a.logger.Info("tool call completed", "agent", a.cfg.Name, "tool", call.Name,
		"duration_ms", time.Since(start).Milliseconds())
	result.ToolsUsed = append(result.ToolsUsed, call.Name)

	payload, err := json.Marshal(out)
	if err != nil {
		return model.ToolMessage(call.ID, fmt.Sprintf("error: unencodable result: %v", err))
	}
	return model.ToolMessage(call.ID, string(payload))
}

// systemPrompt combines role, goal and rendered instructions, and appends the
// reply-format contract when a schema is declared.
func (a *Agent) systemPrompt(data map[string]any) (string, error) {
	rendered, err := prompt.Render(a.cfg.Instructions, data)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("You are %s.\nGoal: %s\n\n%s", a.cfg.Role, a.cfg.Goal, rendered)
	if a.cfg.OutputSchema != nil {
		contract, err := json.Marshal(a.cfg.OutputSchema)
		if err != nil {
			return "", err
		}
		out += "\n\nReply with a single JSON object conforming to this schema, no prose around it:\n" + string(contract)
	}
	return out, nil
}

// extractJSONObject pulls the first balanced JSON object out of a reply.
// Models often wrap JSON in markdown fences or surround it with prose; both
// are tolerated, but the object itself must parse and validate.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeStructured extracts the JSON object from a reply and validates it
// against the schema. Any deviation fails closed with ErrSchemaViolation.
func decodeStructured(text string, s map[string]any) (map[string]any, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrSchemaViolation)
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(raw), &output); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	if err := schema.Validate(output, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return output, nil
}
