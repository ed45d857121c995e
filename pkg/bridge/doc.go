// Package bridge renders templates in an external process. The command gets
// a JSON request on stdin and answers with the rendered markup on stdout;
// it is expected to produce its own error page for template failures.
package bridge
