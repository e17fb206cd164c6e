package application

import "log/slog"

func appLogger() *slog.Logger {
	return slog.Default().With(
		"service", "M47-Bundle-Access-Service",
		"module", "application",
		"layer", "application",
	)
}
