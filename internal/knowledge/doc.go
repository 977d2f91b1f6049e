// Package knowledge provides the persisted index store: semantic document
// storage and similarity search over PostgreSQL + pgvector.
//
// Documents are embedded with a Genkit ai.Embedder on write; searches embed
// the query the same way and rank by cosine similarity. The package exposes
// the store behind small consumer-defined interfaces (the retrieval bridge
// defines its own Searcher, the indexer its own DocumentStore), so any
// backend implementing search/add/delete can substitute for pgvector.
//
// Flow:
//
//	Document (content + metadata)
//	     |
//	     v
//	Embedding generation (ai.Embedder)
//	     |
//	     v
//	Vector storage (PostgreSQL + pgvector)
//	     |
//	     | (when searching)
//	     v
//	Query embedding -> cosine search -> ranked Results
//
// Store is safe for concurrent use; searches are idempotent and read-only.
package knowledge
