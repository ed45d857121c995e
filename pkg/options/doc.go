// Package options holds the render options record, the merge rule applied
// between process defaults and call-time values, and loaders for options and
// context files.
package options
