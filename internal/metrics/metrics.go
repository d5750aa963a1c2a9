// Package metrics exposes the Prometheus gauges and counters named in §6,
// registered once. The health endpoint sets Up, DatabaseConnected and
// RedisConnected, and startup sets Info; nothing in this service updates
// LicensesTotal, AdminsTotal, HardwareTotal or UptimeSeconds, so they stay
// at zero.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Up = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_up",
		Help: "1 if the service is accepting requests, 0 otherwise.",
	})

	DatabaseConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_database_connected",
		Help: "1 if the relational store is reachable, 0 otherwise.",
	})

	RedisConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_redis_connected",
		Help: "1 if the cache is reachable, 0 otherwise.",
	})

	LicensesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_licenses_total",
		Help: "Total number of licenses currently on record.",
	})

	AdminsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_admins_total",
		Help: "Total number of non-deleted admin accounts.",
	})

	HardwareTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giro_hardware_total",
		Help: "Total number of registered hardware fingerprints.",
	})

	UptimeSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "giro_uptime_seconds",
		Help: "Seconds the process has been running, sampled periodically.",
	})

	Info = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "giro_info",
		Help: "Static build information; always 1.",
	}, []string{"version"})
)

var registerOnce sync.Once

// Register registers every collector with the default Prometheus registry.
// Idempotent: safe to call multiple times across tests.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Up,
			DatabaseConnected,
			RedisConnected,
			LicensesTotal,
			AdminsTotal,
			HardwareTotal,
			UptimeSeconds,
			Info,
		)
	})
}
