package host

import (
	"fmt"
	"strings"
	"time"
)

// ElementID identifies an element in the host document.
type ElementID int64

// InvalidElementID is the zero id; hosts never assign it.
const InvalidElementID ElementID = 0

// Category is the built-in category of an element.
type Category string

// Categories used by sheetbatch. Model categories are carried through to the
// interchange export as-is.
const (
	CategoryTitleBlocks Category = "TitleBlocks"
	CategorySheets      Category = "Sheets"
	CategoryViews       Category = "Views"
	CategoryWalls       Category = "Walls"
	CategoryDoors       Category = "Doors"
	CategoryWindows     Category = "Windows"
	CategoryFloors      Category = "Floors"
	CategoryRoofs       Category = "Roofs"
	CategoryColumns     Category = "Columns"
	CategoryGeneric     Category = "GenericModel"
)

// Element is any object stored in the host document.
type Element struct {
	ID       ElementID
	Name     string
	Category Category
	// Owner is the view or sheet the element is placed on, or InvalidElementID
	// for model elements.
	Owner ElementID
}

// Sheet is a page-like document unit.
type Sheet struct {
	ID     ElementID
	Number string
	Name   string
}

// String returns "number - name", or just the name when the number is empty.
func (s Sheet) String() string {
	if s.Number == "" {
		return s.Name
	}
	return s.Number + " - " + s.Name
}

// ViewType classifies a view.
type ViewType string

// View types understood by the exporters.
const (
	ViewFloorPlan   ViewType = "FloorPlan"
	ViewCeilingPlan ViewType = "CeilingPlan"
	ViewSection     ViewType = "Section"
	ViewElevation   ViewType = "Elevation"
	ViewThreeD      ViewType = "ThreeD"
	ViewDrafting    ViewType = "DraftingView"
	ViewSheet       ViewType = "Sheet"
)

var validViewTypes = map[ViewType]bool{
	ViewFloorPlan:   true,
	ViewCeilingPlan: true,
	ViewSection:     true,
	ViewElevation:   true,
	ViewThreeD:      true,
	ViewDrafting:    true,
	ViewSheet:       true,
}

// ParseViewType converts s into a ViewType. Matching is exact.
func ParseViewType(s string) (ViewType, error) {
	vt := ViewType(s)
	if !validViewTypes[vt] {
		return "", fmt.Errorf("unknown view type %q", s)
	}
	return vt, nil
}

// View is a graphical view of the model.
type View struct {
	ID   ElementID
	Name string
	Type ViewType
	// Scale is the view scale denominator (100 for 1:100). Zero means unknown.
	Scale int
}

// ViewSet is a named collection of sheets accepted by the print subsystem.
// Name is empty until the set has been persisted.
type ViewSet struct {
	Name   string
	Sheets []Sheet
}

// SheetIDs returns the ids of the sheets in set order.
func (v ViewSet) SheetIDs() []ElementID {
	ids := make([]ElementID, len(v.Sheets))
	for i, s := range v.Sheets {
		ids[i] = s.ID
	}
	return ids
}

// Size returns the number of sheets in the set.
func (v ViewSet) Size() int { return len(v.Sheets) }

// Orientation is the page orientation of a print setting.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

// String returns "portrait" or "landscape".
func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation parses "portrait" or "landscape", ignoring case.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "portrait":
		return Portrait, nil
	case "landscape":
		return Landscape, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q (must be portrait or landscape)", s)
	}
}

// PaperSize is a paper format offered by a print driver. Width and Height are
// the portrait dimensions in points (1/72 inch).
type PaperSize struct {
	Name   string
	Width  float64
	Height float64
}

// Oriented returns the page dimensions for the given orientation.
func (p PaperSize) Oriented(o Orientation) (w, h float64) {
	if o == Landscape {
		return p.Height, p.Width
	}
	return p.Width, p.Height
}

// PrintRange selects what a job prints. The zero value prints the view set
// named in the settings.
type PrintRange int

const (
	RangeSelect PrintRange = iota
	RangeCurrent
	RangeVisible
)

// String returns the lowercase range name.
func (r PrintRange) String() string {
	switch r {
	case RangeCurrent:
		return "current"
	case RangeVisible:
		return "visible"
	case RangeSelect:
		return "select"
	default:
		return fmt.Sprintf("range(%d)", int(r))
	}
}

// ParsePrintRange parses "current", "visible" or "select".
func ParsePrintRange(s string) (PrintRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current":
		return RangeCurrent, nil
	case "visible":
		return RangeVisible, nil
	case "select":
		return RangeSelect, nil
	default:
		return 0, fmt.Errorf("unknown print range %q", s)
	}
}

// PrintSettings is the print configuration applied to one submission.
// A dispatcher owns a single instance and rewrites it for every group.
type PrintSettings struct {
	Driver       string
	Range        PrintRange
	ViewSet      ViewSet
	PaperSize    PaperSize
	Orientation  Orientation
	CombinedFile bool
}

// Job is a submitted print job.
type Job struct {
	ID          string
	ViewSet     string
	Files       []string
	Pages       int
	SubmittedAt time.Time
}
