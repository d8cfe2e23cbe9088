/*
Package script runs JavaScript against a bridged document.

Each Runtime owns a goja VM, one bridge context and its document. The
document is exposed as the global `document`; nodes reach scripts through
wrapper objects that keep their identity for as long as the script holds
them:

	document.getElementById("a") === document.getElementById("a") // true

A wrapper retains its node on the bridge heap. When the Go collector
reclaims the wrapper a cleanup posts the release back to the context loop,
so the tracing collector only ever runs on the loop goroutine.

DOM exceptions surface as script errors whose `name` is the DOM name
(HierarchyRequestError, SyntaxError, ...). `element.toBlob()` returns a
promise settled from the round trip tracker while Execute drives the loop.

Execute is bounded by Config.Timeout; the VM is interrupted when the
deadline passes. console output is captured in the Result and logged
through zap.
*/
package script
