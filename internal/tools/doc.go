// Package tools registers knowledge base tools with Genkit so agents can
// call retrieval during generation.
//
// The package exposes a single tool, search_knowledge_base, backed by the
// retrieval bridge. Tool handlers never return Go errors for operational
// failures; they return a structured Result with a status and error block
// the model can read and react to. Go errors are reserved for broken
// wiring, which the model cannot fix.
//
// Tool calls emit lifecycle events through an optional emitter stored in
// the context, so callers that stream progress can show tool activity
// without the tools knowing about any UI.
package tools
