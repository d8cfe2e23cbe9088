// Package gc implements the tracing collector for bridge-owned objects.
//
// Objects taking part in collection implement Traceable and forward visits
// to what they own. Ownership runs one way: a node visits its children and
// its lazily created sub-objects but never its parent or siblings, so cycles
// in the tree are never walked backwards.
//
// Roots are objects retained by the scripting side plus whatever registered
// RootSources report (handles pinned by undrained command records, pending
// round trips). Everything tracked and unmarked after a collection is swept
// and, if it implements Finalizer, finalized.
package gc
