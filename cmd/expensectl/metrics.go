package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-expense-tracker/internal/config"
)

// newMetricsRegistry — отдельный реестр для метрик клиента; nil, если метрики выключены.
func newMetricsRegistry(cfg config.MetricsConfig) *prometheus.Registry {
	if cfg.Textfile == "" {
		return nil
	}

	return prometheus.NewRegistry()
}

// writeMetrics сохраняет накопленные за запуск метрики в textfile.
func writeMetrics(cfg config.MetricsConfig, reg *prometheus.Registry) error {
	if cfg.Textfile == "" || reg == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(cfg.Textfile, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}
