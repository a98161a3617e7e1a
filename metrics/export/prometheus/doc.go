// Package prometheus exposes sessionless metrics through
// github.com/prometheus/client_golang.
//
// [Exporter] is a prometheus.Collector that reads a metrics snapshot on every
// scrape. Counters are named sessionless_*_total; the single histogram is
// sessionless_verify_latency_seconds.
//
// The exporter never registers itself in the global registry. Register it
// yourself, or mount [Exporter.Handler], which serves a private registry.
package prometheus
