// Package testsupport holds helpers shared by package tests: temporary
// template trees, golden file handling and output capture.
package testsupport
