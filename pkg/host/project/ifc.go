package project

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"

	"github.com/matzehuels/sheetbatch/pkg/host"
)

// ifcChars is the base-64 alphabet of compressed IFC GlobalIds.
const ifcChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_$"

// ifcNamespace seeds the name-based GlobalIds, so re-exporting a project
// yields the same ids.
var ifcNamespace = uuid.MustParse("6f1c2a4e-9d3b-5c8e-a0f1-4b7d2e9c3a10")

// CompressGUID encodes a UUID as a 22-character IFC GlobalId.
func CompressGUID(u uuid.UUID) string {
	var out [22]byte
	out[0] = ifcChars[u[0]>>6]
	out[1] = ifcChars[u[0]&0x3f]
	for i := 0; i < 5; i++ {
		n := uint32(u[1+3*i])<<16 | uint32(u[2+3*i])<<8 | uint32(u[3+3*i])
		for j := 0; j < 4; j++ {
			out[2+4*i+j] = ifcChars[(n>>(18-6*j))&0x3f]
		}
	}
	return string(out[:])
}

func globalID(title string, id host.ElementID) string {
	return CompressGUID(uuid.NewSHA1(ifcNamespace, []byte(title+"#"+strconv.FormatInt(int64(id), 10))))
}

type ifcWriter struct {
	filename   string
	title      string
	version    host.IFCVersion
	quantities bool
	timestamp  time.Time
	elements   []host.Element
}

func (w *ifcWriter) write(bw *bufio.Writer) error {
	view := "CoordinationView"
	if w.quantities {
		view += ", QuantityTakeOffAddOnView"
	}

	lines := []string{
		"ISO-10303-21;",
		"HEADER;",
		fmt.Sprintf("FILE_DESCRIPTION(('ViewDefinition [%s]'),'2;1');", view),
		fmt.Sprintf("FILE_NAME(%s,%s,(''),(''),'sheetbatch','sheetbatch','');",
			stepString(w.filename), stepString(w.timestamp.UTC().Format("2006-01-02T15:04:05"))),
		fmt.Sprintf("FILE_SCHEMA(('%s'));", w.version),
		"ENDSEC;",
		"DATA;",
		fmt.Sprintf("#1=IFCPROJECT('%s',$,%s,$,$,$,$,$,$);", globalID(w.title, host.InvalidElementID), stepString(w.title)),
	}
	for i, e := range w.elements {
		lines = append(lines, fmt.Sprintf("#%d=IFCBUILDINGELEMENTPROXY('%s',$,%s,$,%s,$,$,%s,$);",
			i+2,
			globalID(w.title, e.ID),
			stepString(e.Name),
			stepString(string(e.Category)),
			stepString(strconv.FormatInt(int64(e.ID), 10))))
	}
	lines = append(lines, "ENDSEC;", "END-ISO-10303-21;")

	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// stepString quotes s as an ISO 10303-21 string literal. Quotes and
// backslashes are doubled; characters outside printable ASCII use the
// \X2\ hex encoding.
func stepString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	var wide []uint16
	flush := func() {
		if len(wide) == 0 {
			return
		}
		b.WriteString(`\X2\`)
		for _, u := range wide {
			fmt.Fprintf(&b, "%04X", u)
		}
		b.WriteString(`\X0\`)
		wide = wide[:0]
	}
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			wide = append(wide, utf16.Encode([]rune{r})...)
			continue
		}
		flush()
		switch r {
		case '\'':
			b.WriteString("''")
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	flush()
	b.WriteByte('\'')
	return b.String()
}
