package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/observability"
)

// logHooks forwards observability events to the debug log.
type logHooks struct {
	logger *log.Logger
}

func registerLoggingHooks(l *log.Logger) {
	h := &logHooks{logger: l}
	observability.SetBatchHooks(h)
	observability.SetStoreHooks(h)
	observability.SetExportHooks(h)
}

func (h *logHooks) OnBatchStart(_ context.Context, sheetCount int) {
	h.logger.Debug("batch started", "sheets", sheetCount)
}

func (h *logHooks) OnGroupStart(_ context.Context, label string, sheetCount int) {
	h.logger.Debug("group started", "label", label, "sheets", sheetCount)
}

func (h *logHooks) OnJobSubmitted(_ context.Context, label, jobID string, d time.Duration) {
	h.logger.Debug("job submitted", "label", label, "job", jobID, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnBatchComplete(_ context.Context, status string, groups int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("batch failed", "groups", groups, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("batch complete", "status", status, "groups", groups, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnViewSetSaved(_ context.Context, name string, sheetCount int) {
	h.logger.Debug("view set saved", "name", name, "sheets", sheetCount)
}

func (h *logHooks) OnViewSetConflict(_ context.Context, name string) {
	h.logger.Debug("view set name taken", "name", name)
}

func (h *logHooks) OnExportStart(_ context.Context, kind string) {
	h.logger.Debug("export started", "kind", kind)
}

func (h *logHooks) OnExportComplete(_ context.Context, kind, path string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("export failed", "kind", kind, "err", err)
		return
	}
	h.logger.Debug("export complete", "kind", kind, "path", path, "duration", d.Round(time.Millisecond))
}
