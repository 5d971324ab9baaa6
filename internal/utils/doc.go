// Package utils provides small shared helpers used throughout gemkit:
// [Ptr] for taking the address of literals when filling optional request
// fields, [TruncateString] for keeping logged payloads bounded, and
// [CloseWithLog] for deferred closes whose errors are only worth a warning.
package utils
