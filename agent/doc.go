// Package agent executes role-scoped calls against a hosted language model.
//
// An agent is configuration, not a process: an enumerated Config (role, goal,
// instruction template, output schema, tools) plus a model to call. Executing
// an agent renders its instructions with the run context, issues the call,
// serves any tool calls the model requests and validates the structured reply
// at the boundary. Replies that do not conform fail closed with
// ErrSchemaViolation so callers can take their deterministic fallback path.
//
// Tool usage is reported in the Result of each execution rather than through
// shared state, so repeated or concurrent runs cannot interfere.
package agent
