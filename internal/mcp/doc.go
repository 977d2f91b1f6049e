// Package mcp exposes the knowledge base over the Model Context Protocol.
//
// The server registers search_knowledge_base so any MCP client can query
// the indexed documents through the retrieval bridge. Handlers convert the
// tools package's structured Result into MCP content: operational failures
// become IsError text results the client model can read, and only broken
// wiring propagates as a protocol error.
//
// The server runs over the transport the caller supplies, typically stdio
// for editor and desktop clients.
package mcp
