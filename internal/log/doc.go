// Package log provides slog loggers that mask reporter personal data.
//
// Issue files carry whatever residents typed in, and some of them include
// contact details. Log lines end up in CI output and bug reports, so every
// logger built here passes records through SecureHandler first:
//   - Keys naming personal data (email, phone, reporter, contact) are masked
//   - Values that look like e-mail addresses or phone numbers are masked
//   - Credential keys (password, secret, token) are masked
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Warn("skipping issue file", "file", name, "email", addr) // email=***REDACTED***
//	slog.SetDefault(logger)
package log
