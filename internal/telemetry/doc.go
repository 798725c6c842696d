// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Метрики регистрируются в глобальном реестре Prometheus и
// отдаются на /metrics, если консоль запущена с --metrics-addr.
package telemetry
