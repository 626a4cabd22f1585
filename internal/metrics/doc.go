// Package metrics defines the Recorder abstraction for build observability
// and a Prometheus-backed implementation served over HTTP in watch mode.
package metrics
