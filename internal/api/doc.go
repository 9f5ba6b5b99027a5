// Package api hosts the operator HTTP surface that runs beside a batch:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the progress of the current run.
package api
