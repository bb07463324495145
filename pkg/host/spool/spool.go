// Package spool is a print subsystem that renders submitted jobs to PDF.
//
// A [Spooler] knows a fixed set of drivers, each with its paper catalog.
// Submitting a view set writes one page per sheet, sized and oriented by the
// job settings, into the spool directory: a single combined file, or one
// file per sheet.
package spool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/signintech/gopdf"

	"github.com/matzehuels/sheetbatch/pkg/errors"
	"github.com/matzehuels/sheetbatch/pkg/host"
	"github.com/matzehuels/sheetbatch/pkg/raster"
)

// Page layout in points.
const (
	frameMargin  = 20.0
	captionW     = 360.0
	captionH     = 54.0
	captionScale = 2 // caption raster pixels per point
)

// Option configures a Spooler.
type Option func(*Spooler)

// WithClock sets the clock used for job timestamps.
func WithClock(now host.Clock) Option {
	return func(s *Spooler) { s.now = now }
}

// WithJobIDFunc sets the job id generator (default uuid.NewString).
func WithJobIDFunc(fn func() string) Option {
	return func(s *Spooler) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Spooler) { s.logger = l }
}

// Spooler implements host.PrintSubsystem.
type Spooler struct {
	dir     string
	drivers map[string]Driver
	now     host.Clock
	newID   func() string
	logger  *log.Logger

	mu     sync.Mutex
	active *Driver
}

var _ host.PrintSubsystem = (*Spooler)(nil)

// New creates a spooler writing into dir. The directory is created if needed.
func New(dir string, drivers []Driver, opts ...Option) (*Spooler, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	s := &Spooler{
		dir:     dir,
		drivers: make(map[string]Driver, len(drivers)),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, d := range drivers {
		s.drivers[d.Name] = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the spool directory.
func (s *Spooler) Dir() string { return s.dir }

// SelectDriver implements host.PrintSubsystem.
func (s *Spooler) SelectDriver(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[name]
	if !ok {
		return errors.New(errors.ErrCodeDriverNotFound, "print driver %q is not installed", name)
	}
	s.active = &d
	return nil
}

// PaperSizes implements host.PrintSubsystem.
func (s *Spooler) PaperSizes(ctx context.Context) ([]host.PaperSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil, host.ErrNoDriver
	}
	return append([]host.PaperSize(nil), s.active.Papers...), nil
}

// Submit implements host.PrintSubsystem. Only RangeSelect is supported: the
// spooler prints view sets, not an interactive view.
func (s *Spooler) Submit(ctx context.Context, settings host.PrintSettings) (host.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return host.Job{}, host.ErrNoDriver
	}
	if settings.Range != host.RangeSelect {
		return host.Job{}, errors.New(errors.ErrCodeUnsupported, "print range %s is not supported by the spooler", settings.Range)
	}
	vs := settings.ViewSet
	if vs.Name == "" {
		return host.Job{}, errors.New(errors.ErrCodeInvalidInput, "view set has not been saved")
	}
	if vs.Size() == 0 {
		return host.Job{}, errors.New(errors.ErrCodeInvalidInput, "view set %q is empty", vs.Name)
	}
	paper, ok := s.active.Offers(settings.PaperSize.Name)
	if !ok {
		return host.Job{}, errors.New(errors.ErrCodeFormatNotFound, "driver %q has no paper size %q", s.active.Name, settings.PaperSize.Name)
	}

	job := host.Job{
		ID:          s.newID(),
		ViewSet:     vs.Name,
		Pages:       vs.Size(),
		SubmittedAt: s.now(),
	}
	base := errors.SanitizeFileName(vs.Name)

	if settings.CombinedFile {
		path := filepath.Join(s.dir, base+".pdf")
		if err := s.writePDF(ctx, path, vs.Sheets, paper, settings.Orientation, vs.Name); err != nil {
			return host.Job{}, err
		}
		job.Files = []string{path}
	} else {
		for _, sh := range vs.Sheets {
			path := filepath.Join(s.dir, base+"_"+errors.SanitizeFileName(sh.String())+".pdf")
			if err := s.writePDF(ctx, path, []host.Sheet{sh}, paper, settings.Orientation, vs.Name); err != nil {
				return host.Job{}, err
			}
			job.Files = append(job.Files, path)
		}
	}

	s.logger.Debug("spooled job",
		"job", job.ID,
		"viewset", vs.Name,
		"paper", paper.Name,
		"orientation", settings.Orientation.String(),
		"files", len(job.Files))
	return job, nil
}

func (s *Spooler) writePDF(ctx context.Context, path string, sheets []host.Sheet, paper host.PaperSize, o host.Orientation, setName string) error {
	w, h := paper.Oriented(o)
	rect := gopdf.Rect{W: w, H: h}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: rect})
	defer pdf.Close()

	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &rect})
		drawFrame(pdf, w, h)

		img := raster.Render(captionW*captionScale, captionH*captionScale,
			raster.WithBorder(captionScale),
			raster.WithCaption(sh.String(), setName, fmt.Sprintf("%s %s", paper.Name, o)))
		var buf bytes.Buffer
		if err := raster.Encode(&buf, img, host.ImagePNG); err != nil {
			return err
		}
		holder, err := gopdf.ImageHolderByBytes(buf.Bytes())
		if err != nil {
			return fmt.Errorf("caption image: %w", err)
		}
		x := w - frameMargin - captionW
		y := h - frameMargin - captionH
		if err := pdf.ImageByHolder(holder, x, y, &gopdf.Rect{W: captionW, H: captionH}); err != nil {
			return fmt.Errorf("place caption on %s: %w", sh, err)
		}
	}

	if err := pdf.WritePdf(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// drawFrame draws the drawing border inset by frameMargin.
func drawFrame(pdf *gopdf.GoPdf, w, h float64) {
	l, t, r, b := frameMargin, frameMargin, w-frameMargin, h-frameMargin
	pdf.SetLineWidth(1)
	pdf.Line(l, t, r, t)
	pdf.Line(r, t, r, b)
	pdf.Line(r, b, l, b)
	pdf.Line(l, b, l, t)
}
