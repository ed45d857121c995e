// Package extension lets callers mutate a template environment before it
// renders: add filters, functions, globals and alias paths. Extensions are
// plain Go functions registered by name, since there is no runtime require;
// options refer to them through {file, func} pairs.
package extension
