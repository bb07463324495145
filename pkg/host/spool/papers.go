package spool

import "github.com/matzehuels/sheetbatch/pkg/host"

// Paper sizes in points (1" = 72pt), portrait.
var (
	A0     = host.PaperSize{Name: "A0", Width: 2383.94, Height: 3370.39} // 841mm x 1189mm
	A1     = host.PaperSize{Name: "A1", Width: 1683.78, Height: 2383.94} // 594mm x 841mm
	A2     = host.PaperSize{Name: "A2", Width: 1190.55, Height: 1683.78} // 420mm x 594mm
	A3     = host.PaperSize{Name: "A3", Width: 841.89, Height: 1190.55}  // 297mm x 420mm
	A4     = host.PaperSize{Name: "A4", Width: 595.28, Height: 841.89}   // 210mm x 297mm
	A5     = host.PaperSize{Name: "A5", Width: 419.53, Height: 595.28}   // 148mm x 210mm
	Letter = host.PaperSize{Name: "Letter", Width: 612, Height: 792}     // 8.5" x 11"
	Legal  = host.PaperSize{Name: "Legal", Width: 612, Height: 1008}     // 8.5" x 14"
)

// Driver is an installed print driver and the paper sizes it offers.
type Driver struct {
	Name   string
	Papers []host.PaperSize
}

// Offers reports whether the driver has a paper size named name.
func (d Driver) Offers(name string) (host.PaperSize, bool) {
	for _, p := range d.Papers {
		if p.Name == name {
			return p, true
		}
	}
	return host.PaperSize{}, false
}

// DefaultDrivers returns the drivers installed on a fresh spooler: the PDF
// printer of the title-block templates with the ISO A series and Letter, and
// a generic office PDF printer without the large formats.
func DefaultDrivers() []Driver {
	return []Driver{
		{
			Name:   "PDF-XChange 5.0 for ABBYY FineReader 14",
			Papers: []host.PaperSize{A0, A1, A2, A3, A4, A5, Letter},
		},
		{
			Name:   "Microsoft Print to PDF",
			Papers: []host.PaperSize{A3, A4, A5, Letter, Legal},
		},
	}
}
