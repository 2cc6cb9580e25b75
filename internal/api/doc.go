// Package api implements the worker's ops HTTP API.
//
// Endpoints:
//   - GET  /api/v1/health                    liveness and bus connectivity
//   - GET  /api/v1/devices                   device registry, filterable by type and tag
//   - GET  /api/v1/devices/{name}            one device
//   - GET  /api/v1/automations               resolved automations with next fire time
//   - GET  /api/v1/automations/{name}        one automation
//   - POST /api/v1/automations/{name}/run    fire now and return the report
//   - GET  /metrics                          Prometheus exposition
//
// The API is read-only over configuration: automations and devices come
// from the manifest loaded at startup. There is no authentication; bind it
// to a private interface.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
