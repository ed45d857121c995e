// Package engine wraps a pongo2 template set behind an alias-aware loader.
// An Environment compiles and caches templates, recompiles them when their
// files change, and exposes the mutation surface extensions use. A
// filesystem Watcher can take over invalidation for long-running servers.
package engine
