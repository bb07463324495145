package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoDriver is returned by a PrintSubsystem when no driver has been selected.
var ErrNoDriver = errors.New("no print driver selected")

// Document is the read side of the host document store.
type Document interface {
	// Title is the document name, used for default export file names.
	Title() string

	// Sheets enumerates all sheet instances (not sheet types) in store order.
	Sheets(ctx context.Context) ([]Sheet, error)

	// Views enumerates graphical views in store order.
	Views(ctx context.Context) ([]View, error)

	// ElementsOf returns the ids of elements of category c owned by owner, in
	// store order. InvalidElementID as owner means the whole document.
	ElementsOf(ctx context.Context, c Category, owner ElementID) ([]ElementID, error)

	// Element resolves an id. The bool is false when no such element exists.
	Element(ctx context.Context, id ElementID) (Element, bool, error)
}

// Transaction is a scoped unit of work in the host store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor opens named transactions.
type Transactor interface {
	Begin(ctx context.Context, name string) (Transaction, error)
}

// WithTransaction runs fn inside a transaction named name. The transaction is
// committed when fn returns nil and rolled back otherwise, including on panic.
func WithTransaction(ctx context.Context, t Transactor, name string, fn func(ctx context.Context) error) (err error) {
	tx, err := t.Begin(ctx, name)
	if err != nil {
		return fmt.Errorf("begin %q: %w", name, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback %q: %w", name, rbErr))
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %q: %w", name, err)
	}
	committed = true
	return nil
}

// ImageFileType is the raster format written by an image export.
type ImageFileType string

const (
	ImagePNG  ImageFileType = "png"
	ImageJPEG ImageFileType = "jpeg"
	ImageBMP  ImageFileType = "bmp"
	ImageTIFF ImageFileType = "tiff"
)

// Ext returns the file extension including the dot.
func (t ImageFileType) Ext() string {
	switch t {
	case ImageJPEG:
		return ".jpg"
	case ImageBMP:
		return ".bmp"
	case ImageTIFF:
		return ".tif"
	default:
		return ".png"
	}
}

// ParseImageFileType parses png, jpeg (or jpg), bmp, tiff (or tif).
func ParseImageFileType(s string) (ImageFileType, error) {
	switch s {
	case "png":
		return ImagePNG, nil
	case "jpeg", "jpg":
		return ImageJPEG, nil
	case "bmp":
		return ImageBMP, nil
	case "tiff", "tif":
		return ImageTIFF, nil
	default:
		return "", fmt.Errorf("unknown image format %q (must be png, jpeg, bmp or tiff)", s)
	}
}

// ZoomType controls how a view is scaled into the image.
type ZoomType int

const (
	ZoomFitToPage ZoomType = iota
	ZoomZoom
)

// FitDirection selects which image dimension PixelSize applies to.
type FitDirection int

const (
	FitHorizontal FitDirection = iota
	FitVertical
)

// ImageExportOptions configures an image export.
type ImageExportOptions struct {
	// FilePath is the destination without extension; the exporter appends
	// the extension of FileType.
	FilePath     string
	View         View
	FileType     ImageFileType
	Zoom         ZoomType
	PixelSize    int
	DPI          int
	FitDirection FitDirection
	Range        PrintRange
}

// IFCVersion is the interchange schema written by a model export.
type IFCVersion string

const (
	IFC2x3 IFCVersion = "IFC2X3"
	IFC4   IFCVersion = "IFC4"
)

// ParseIFCVersion accepts IFC2x3 and IFC4 in any case.
func ParseIFCVersion(s string) (IFCVersion, error) {
	switch v := IFCVersion(strings.ToUpper(strings.TrimSpace(s))); v {
	case IFC2x3, IFC4:
		return v, nil
	default:
		return "", fmt.Errorf("unknown IFC version %q (must be IFC2x3 or IFC4)", s)
	}
}

// ModelExportOptions configures an interchange-format export.
type ModelExportOptions struct {
	Version              IFCVersion
	ExportBaseQuantities bool
}

// Exporter runs the opaque export operations of the host.
type Exporter interface {
	// ExportImage writes the view in opts and returns the written path.
	ExportImage(ctx context.Context, opts ImageExportOptions) (string, error)

	// ExportModel writes the whole model to dir/filename and returns the path.
	ExportModel(ctx context.Context, dir, filename string, opts ModelExportOptions) (string, error)
}

// PrintSubsystem is the host print manager.
type PrintSubsystem interface {
	// SelectDriver makes name the active driver. Unknown names are a host fault.
	SelectDriver(ctx context.Context, name string) error

	// PaperSizes lists the paper formats offered by the active driver.
	PaperSizes(ctx context.Context) ([]PaperSize, error)

	// Submit prints settings.ViewSet with the given configuration.
	Submit(ctx context.Context, settings PrintSettings) (Job, error)
}

// Clock returns the current time. Hosts take one so tests can fix time.
type Clock func() time.Time
