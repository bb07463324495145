package export

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/observability"
)

// ModelConfig configures an IFC export.
type ModelConfig struct {
	OutputDir string
	// Filename defaults to the document title with an .ifc extension.
	Filename             string
	Version              host.IFCVersion
	ExportBaseQuantities bool
}

// ValidateAndSetDefaults fills zero fields from doc and checks paths.
func (c *ModelConfig) ValidateAndSetDefaults(doc host.Document) error {
	if err := errors.ValidateOutputDir(c.OutputDir); err != nil {
		return err
	}
	if c.Filename == "" {
		c.Filename = errors.SanitizeFileName(doc.Title()) + ".ifc"
	}
	if err := errors.ValidateFileName(c.Filename); err != nil {
		return err
	}
	if c.Version == "" {
		c.Version = host.IFC2x3
	}
	return nil
}

// ModelExporter exports the whole model to an interchange file.
type ModelExporter struct {
	doc      host.Document
	tx       host.Transactor
	exporter host.Exporter
	config   ModelConfig
	logger   *log.Logger
}

// NewModelExporter wires a model exporter. A nil logger discards output.
func NewModelExporter(doc host.Document, tx host.Transactor, exporter host.Exporter, cfg ModelConfig, logger *log.Logger) *ModelExporter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &ModelExporter{doc: doc, tx: tx, exporter: exporter, config: cfg, logger: logger}
}

// Export writes the model and returns the written path.
func (e *ModelExporter) Export(ctx context.Context) (path string, err error) {
	if err := e.config.ValidateAndSetDefaults(e.doc); err != nil {
		return "", err
	}

	start := time.Now()
	observability.Export().OnExportStart(ctx, KindIFC)
	defer func() {
		observability.Export().OnExportComplete(ctx, KindIFC, path, time.Since(start), err)
	}()

	opts := host.ModelExportOptions{
		Version:              e.config.Version,
		ExportBaseQuantities: e.config.ExportBaseQuantities,
	}
	err = host.WithTransaction(ctx, e.tx, ModelTxName, func(ctx context.Context) error {
		p, err := e.exporter.ExportModel(ctx, e.config.OutputDir, e.config.Filename, opts)
		if err != nil {
			return errors.Wrap(errors.ErrCodeHostFault, err, "export model %q", e.doc.Title())
		}
		path = p
		return nil
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("exported model", "path", path, "version", e.config.Version)
	return path, nil
}
