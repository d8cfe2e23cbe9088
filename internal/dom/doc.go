// Package dom is the scripting-side tree model.
//
// Nodes live in the execution context's heap and are addressed on the host
// by their binding handle. Every successful mutation updates the local tree
// and appends exactly one command record addressed at the mutated node,
// except ReplaceChild which is an insert followed by a remove. Failed
// mutations return an *Exception and append nothing.
//
// Queries that need layout or selector matching are answered by the host
// through the context's invocation channel, after an implicit flush.
package dom
