// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about batch runs, view-set persistence and exports.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which avoids import
// cycles and keeps the core free of backend-specific code.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBatchHooks(&myBatchHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Batch().OnGroupStart(ctx, label, len(sheets))
//	// ... persist, configure, submit ...
//	observability.Batch().OnJobSubmitted(ctx, label, job.ID, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Batch Hooks
// =============================================================================

// BatchHooks receives events from the batch print dispatcher.
type BatchHooks interface {
	OnBatchStart(ctx context.Context, sheetCount int)
	OnGroupStart(ctx context.Context, label string, sheetCount int)
	OnJobSubmitted(ctx context.Context, label, jobID string, duration time.Duration)
	// OnBatchComplete reports the terminal status ("success" or "aborted").
	// err is set only when the run ended with a host fault.
	OnBatchComplete(ctx context.Context, status string, groups int, duration time.Duration, err error)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from view-set persistence.
type StoreHooks interface {
	// OnViewSetSaved records a committed view set.
	OnViewSetSaved(ctx context.Context, name string, sheetCount int)

	// OnViewSetConflict records a rejected duplicate name.
	OnViewSetConflict(ctx context.Context, name string)
}

// =============================================================================
// Export Hooks
// =============================================================================

// ExportHooks receives events from image and model exports.
type ExportHooks interface {
	// OnExportStart records the start of an export of the given kind ("image" or "ifc").
	OnExportStart(ctx context.Context, kind string)

	// OnExportComplete records the written path or the error.
	OnExportComplete(ctx context.Context, kind, path string, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBatchHooks is a no-op implementation of BatchHooks.
type NoopBatchHooks struct{}

func (NoopBatchHooks) OnBatchStart(context.Context, int)                                    {}
func (NoopBatchHooks) OnGroupStart(context.Context, string, int)                            {}
func (NoopBatchHooks) OnJobSubmitted(context.Context, string, string, time.Duration)        {}
func (NoopBatchHooks) OnBatchComplete(context.Context, string, int, time.Duration, error)   {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnViewSetSaved(context.Context, string, int) {}
func (NoopStoreHooks) OnViewSetConflict(context.Context, string)   {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExportStart(context.Context, string)                                 {}
func (NoopExportHooks) OnExportComplete(context.Context, string, string, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	batchHooks  BatchHooks  = NoopBatchHooks{}
	storeHooks  StoreHooks  = NoopStoreHooks{}
	exportHooks ExportHooks = NoopExportHooks{}
	hooksMu     sync.RWMutex
)

// SetBatchHooks registers custom batch hooks.
// This should be called once at application startup before any batch runs.
func SetBatchHooks(h BatchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		batchHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetExportHooks registers custom export hooks.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// Batch returns the registered batch hooks.
func Batch() BatchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return batchHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	batchHooks = NoopBatchHooks{}
	storeHooks = NoopStoreHooks{}
	exportHooks = NoopExportHooks{}
}
