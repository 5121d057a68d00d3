// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration loading and runtime metrics for the handshake tooling.
//
// Provides:
//   - Layered configuration (defaults, YAML file, environment, overrides)
//     unmarshalled into a validated Config
//   - Prometheus handshake metrics wired into the client as an Observer
package control
