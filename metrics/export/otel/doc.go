// Package otel publishes flasky engine metrics through OpenTelemetry.
//
// [NewOTelExporter] creates one Int64ObservableCounter per engine counter
// and one Int64ObservableGauge per histogram bucket, then reads
// [flasky.Engine.MetricsSnapshot] from a single callback on each
// collection. The caller owns the MeterProvider.
package otel
