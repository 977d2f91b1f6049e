// Package bridge implements the retrieval bridge between analysis tasks
// and the knowledge index.
//
// The bridge is a stateless façade over an index store's search capability.
// It normalizes queries, bounds result counts, enforces a per-call timeout
// budget and a rate limit, and shapes raw store results into attributable,
// deterministically ordered chunks. Upstream failure never surfaces as an
// error: the bridge degrades to an empty, flagged result so callers can
// proceed with an empty-context fallback instead of aborting a workflow.
//
// Architecture:
//
//	task ──> Bridge.Search ──> Searcher (index store)
//	              │
//	              ├─ normalize query, resolve k
//	              ├─ rate limit + timeout budget
//	              ├─ drop malformed chunks
//	              └─ re-sort, truncate, flag truncation/degradation
//
// The Searcher interface is defined here by the consumer so any store
// implementation can be substituted.
package bridge
