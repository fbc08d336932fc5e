// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. The ingest run identifier is the
// only place a third-party package (google/uuid) is used directly.
package services
