// =============================================================================
// Trade Document Reconciler - Main Entry Point
// =============================================================================
//
// USAGE:
//   reconciler reconcile  - Reconcile a cost document with a weight document
//   reconciler serve      - Serve the HTTP API
//   reconciler validate   - Validate configuration and templates
//   reconciler version    - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : Extraction, reconciliation, rendering and the HTTP API
//   - pkg/        : Shared file utilities
//   - templates/  : Per-layout YAML templates
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/tradedoc-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
