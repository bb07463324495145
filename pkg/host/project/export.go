package project

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/raster"
)

// viewAspect is the width/height ratio of exported views: a landscape
// ISO A sheet.
var viewAspect = math.Sqrt2

// ExportImage implements host.Exporter. It renders a placeholder of the view
// (frame and caption) and writes it to opts.FilePath plus the extension of
// opts.FileType. The file is removed if the surrounding transaction rolls
// back.
func (p *Project) ExportImage(ctx context.Context, opts host.ImageExportOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if opts.FilePath == "" {
		return "", fmt.Errorf("export image: empty file path")
	}
	if _, ok := p.byID[opts.View.ID]; !ok {
		return "", fmt.Errorf("export image: view %d not in project", opts.View.ID)
	}

	w, h := raster.Fit(opts.PixelSize, opts.FitDirection, viewAspect)
	caption := []string{opts.View.Name, string(opts.View.Type)}
	if opts.View.Scale > 0 {
		caption[1] += fmt.Sprintf("  1:%d", opts.View.Scale)
	}
	if p.title != "" {
		caption = append(caption, p.title)
	}
	img := raster.Render(w, h, raster.WithCaption(caption...))

	path := opts.FilePath + opts.FileType.Ext()
	err := p.writeFile(path, func(bw *bufio.Writer) error {
		return raster.Encode(bw, img, opts.FileType)
	})
	if err != nil {
		return "", fmt.Errorf("export image: %w", err)
	}
	return path, nil
}

// ExportModel implements host.Exporter. It writes an IFC-SPF file listing
// the project and every model element.
func (p *Project) ExportModel(ctx context.Context, dir, filename string, opts host.ModelExportOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if opts.Version == "" {
		opts.Version = host.IFC2x3
	}
	path := filepath.Join(dir, filename)
	w := &ifcWriter{
		filename:   filename,
		title:      p.title,
		version:    opts.Version,
		quantities: opts.ExportBaseQuantities,
		timestamp:  p.now(),
		elements:   p.modelElements(),
	}
	if err := p.writeFile(path, w.write); err != nil {
		return "", fmt.Errorf("export model: %w", err)
	}
	return path, nil
}

// writeFile creates path, tracks it in the open transaction and fills it
// with fill. A partially written file is removed.
func (p *Project) writeFile(path string, fill func(*bufio.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	p.track(path)
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		return err
	}
	return bw.Flush()
}
