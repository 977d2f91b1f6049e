// Package crew runs dependency-ordered analysis tasks over the knowledge
// base.
//
// A WorkflowRun executes a set of tasks, each bound to an agent persona.
// Tasks run sequentially in dependency order. Each task may retrieve
// context through an injected retrieval capability, then reasons over it
// with the inference client. A failed task does not abort the run: its
// dependents are told the upstream degraded and decide what to make of it,
// mirroring the retrieval bridge's degrade-don't-fail contract.
package crew
