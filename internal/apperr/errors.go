// Package apperr holds the sentinel errors shared by the HTTP and MCP
// surfaces.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)
