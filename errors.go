package h1

import "github.com/wire1/h1/internal/h1err"

// ProtocolError is the single error kind the engine raises (spec.md §7): a
// message plus an optional HTTP status hint (e.g. 431 for an oversized
// header block). Use errors.As to recover one from a wrapped error.
type ProtocolError = h1err.ProtocolError
