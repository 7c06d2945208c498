// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema validated arguments and
// consistent error handling. The domain tools (cost calculator, allocation
// oracle) are thin wrappers over the plant package so that the numbers an
// agent sees always come from the same closed-form formula the orchestrator
// verifies with.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/allocmesh/internal/schema"
	"github.com/hupe1980/allocmesh/model"
)

// Tool is a structured capability an agent can expose to the model.
//
// Implementations should be side-effect free and safe for concurrent use;
// tools are shared across panel experts evaluated in parallel.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description is shown to the model to explain when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Definition converts a Tool into the wire declaration sent to the model.
func Definition(t Tool) model.ToolDefinition {
	return model.ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}

// ValidationError re-exports the schema validation error for callers that
// match on it.
type ValidationError = schema.ValidationError

// Error codes attached to ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}
