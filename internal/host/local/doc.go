// Package local is an in-process native host.
//
// Each execution context gets a Mirror: an x/net/html tree keyed by binding
// handle, plus the per-node state a UI would keep (inline style, scroll
// offsets, click counts). Records are applied strictly in order and at most
// once; queries run against the mirror with goquery, cascadia and htmlquery;
// snapshots are rendered as PNG on a separate goroutine.
//
// Layout is a deterministic block flow: every element spans its container
// unless it carries a px width, stacks its children vertically, and text
// takes 16px per line.
package local
