// Package internaldefs holds the metric names and bucket bounds shared by
// the exporters, so the Prometheus and OTel outputs never drift apart.
//
// It performs no I/O and imports no exporter package.
package internaldefs
