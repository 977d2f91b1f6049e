// Package indexer builds the knowledge base from local files, directories,
// and web pages.
//
// Content is split into fixed-size overlapping chunks before storage so a
// single oversized document cannot blow the embedding input limit and so
// retrieval returns focused spans instead of whole files. Re-indexing a
// source first removes its previous chunks, keeping one source one set of
// chunks. A file lock serializes writers so concurrent invocations cannot
// interleave partial updates.
package indexer
