// Package logger builds the application's slog.Logger: JSON records in
// production, tint's coloured console output in every other environment.
package logger
