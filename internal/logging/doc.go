// Package logging provides structured, file-based logging with rotation for the
// retrieval engine. Setup builds a *slog.Logger and SetupDefault installs one as
// the slog default; the engine's components log through the log/slog
// package-level functions and so write to whichever logger is the default.
package logging
