// Package prometheus renders flasky engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] wraps an Engine and exposes an [http.Handler].
// Counter names are flasky_*_total; the single histogram is
// flasky_token_verify_latency_seconds. Nothing is registered globally;
// callers mount the Handler themselves.
package prometheus
