// Package export runs the two single-shot export flows: one view to a raster
// image, and the whole model to an IFC file.
//
// Neither flow touches the batch components. Each selects its input, builds a
// fixed options value and calls the host exporter inside a named host
// transaction.
package export

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/observability"
)

// Transaction names used against the host store.
const (
	ImageTxName = "Export Image"
	ModelTxName = "Export IFC"
)

// Export kinds reported to hooks.
const (
	KindImage = "image"
	KindIFC   = "ifc"
)

// Image export defaults.
const (
	DefaultPixelSize = 1024
	DefaultDPI       = 600
)

// ImageConfig selects the view and the raster parameters.
type ImageConfig struct {
	OutputDir string
	ViewType  host.ViewType
	// ViewName, when set, must match the view name exactly.
	ViewName  string
	FileType  host.ImageFileType
	PixelSize int
	DPI       int
}

// DefaultImageConfig exports the first floor plan as a 1024 px PNG at 600 DPI.
func DefaultImageConfig(outputDir string) ImageConfig {
	return ImageConfig{
		OutputDir: outputDir,
		ViewType:  host.ViewFloorPlan,
		FileType:  host.ImagePNG,
		PixelSize: DefaultPixelSize,
		DPI:       DefaultDPI,
	}
}

// ValidateAndSetDefaults fills zero fields and checks the output directory.
func (c *ImageConfig) ValidateAndSetDefaults() error {
	if err := errors.ValidateOutputDir(c.OutputDir); err != nil {
		return err
	}
	if c.ViewType == "" {
		c.ViewType = host.ViewFloorPlan
	}
	if c.FileType == "" {
		c.FileType = host.ImagePNG
	}
	if c.PixelSize <= 0 {
		c.PixelSize = DefaultPixelSize
	}
	if c.DPI <= 0 {
		c.DPI = DefaultDPI
	}
	return nil
}

// ImageExporter exports one view as an image.
type ImageExporter struct {
	doc      host.Document
	tx       host.Transactor
	exporter host.Exporter
	config   ImageConfig
	logger   *log.Logger
}

// NewImageExporter wires an image exporter. A nil logger discards output.
func NewImageExporter(doc host.Document, tx host.Transactor, exporter host.Exporter, cfg ImageConfig, logger *log.Logger) *ImageExporter {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &ImageExporter{doc: doc, tx: tx, exporter: exporter, config: cfg, logger: logger}
}

// FindView returns the first view of the configured type, in store order,
// whose name matches ViewName when one is given.
func (e *ImageExporter) FindView(ctx context.Context) (host.View, error) {
	views, err := e.doc.Views(ctx)
	if err != nil {
		return host.View{}, errors.Wrap(errors.ErrCodeHostFault, err, "enumerate views")
	}
	for _, v := range views {
		if v.Type != e.config.ViewType {
			continue
		}
		if e.config.ViewName != "" && v.Name != e.config.ViewName {
			continue
		}
		return v, nil
	}
	if e.config.ViewName != "" {
		return host.View{}, errors.New(errors.ErrCodeViewNotFound, "no %s view named %q", e.config.ViewType, e.config.ViewName)
	}
	return host.View{}, errors.New(errors.ErrCodeViewNotFound, "no %s view in document", e.config.ViewType)
}

// Options returns the export options for v.
func (e *ImageExporter) Options(v host.View) host.ImageExportOptions {
	return host.ImageExportOptions{
		FilePath:     filepath.Join(e.config.OutputDir, errors.SanitizeFileName(v.Name)),
		View:         v,
		FileType:     e.config.FileType,
		Zoom:         host.ZoomFitToPage,
		PixelSize:    e.config.PixelSize,
		DPI:          e.config.DPI,
		FitDirection: host.FitHorizontal,
		Range:        host.RangeCurrent,
	}
}

// Export writes the selected view and returns the written path.
func (e *ImageExporter) Export(ctx context.Context) (path string, err error) {
	if err := e.config.ValidateAndSetDefaults(); err != nil {
		return "", err
	}

	start := time.Now()
	observability.Export().OnExportStart(ctx, KindImage)
	defer func() {
		observability.Export().OnExportComplete(ctx, KindImage, path, time.Since(start), err)
	}()

	err = host.WithTransaction(ctx, e.tx, ImageTxName, func(ctx context.Context) error {
		v, err := e.FindView(ctx)
		if err != nil {
			return err
		}
		e.logger.Debug("exporting view", "view", v.Name, "type", v.Type)
		path, err = e.exporter.ExportImage(ctx, e.Options(v))
		if err != nil {
			return errors.Wrap(errors.ErrCodeHostFault, err, "export view %q", v.Name)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("exported image", "path", path)
	return path, nil
}
