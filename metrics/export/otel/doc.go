// Package otel binds sessionless metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads the metrics
// snapshot on each collection cycle.
//
// Callers own the MeterProvider; the exporter only registers instruments.
package otel
