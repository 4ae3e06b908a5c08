// Package metrics records build pipeline metrics.
//
// Components receive a Recorder through injection and default to
// NoopRecorder, so metrics cost nothing unless a real implementation is
// wired in:
//
//	reg := prometheus.NewRegistry()
//	svc := build.NewService().WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The CLI exposes the Prometheus registry through a text file
// (see WriteTextfile) since a build is a short-lived process.
package metrics
