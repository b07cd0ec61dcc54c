package pdf

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Document is an opened PDF whose text layer can be read page by page. It
// satisfies extract.Pages.
type Document struct {
	reader *pdf.Reader
	closer io.Closer
}

// Open parses a PDF held in r
func Open(r io.ReaderAt, size int64) (doc *Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrMalformedDocument, p)
		}
	}()

	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return &Document{reader: pdfReader}, nil
}

// OpenFile opens the PDF at path. The caller must Close the document.
func OpenFile(path string) (doc *Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrMalformedDocument, p)
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", path)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	return &Document{reader: pdfReader, closer: f}, nil
}

// Close releases the underlying file, if any
func (d *Document) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// NumPages returns the page count
func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

// PageText returns the text of page n (1-based), one line per visual row,
// rows ordered top to bottom. A page without a text layer yields "".
//
// Rows are rebuilt from positioned glyphs: a space is inserted wherever the
// gap between two glyphs exceeds wordGap of the font size. When the page's
// fonts carry no width metrics the glyph positions are meaningless, and the
// text runs reported by GetTextByRow are joined instead.
func (d *Document) PageText(n int) (text string, err error) {
	if n < 1 || n > d.reader.NumPage() {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", n, d.reader.NumPage())
	}

	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%w: page %d: %v", ErrMalformedDocument, n, p)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}

	glyphs := visibleGlyphs(page.Content().Text)
	if len(glyphs) == 0 {
		return "", nil
	}

	var lines []string
	if hasMetrics(glyphs) {
		for _, row := range groupRows(glyphs) {
			lines = append(lines, joinGlyphs(row))
		}
	} else {
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrMalformedDocument, n, err)
		}
		for _, row := range rows {
			lines = append(lines, joinRuns(row.Content))
		}
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n"), nil
}

const (
	// wordGap is the horizontal gap, as a fraction of the font size, above
	// which two glyphs belong to different words.
	wordGap = 0.2

	// rowSpread is how far below a row's top baseline, as a fraction of the
	// font size, a glyph still belongs to that row.
	rowSpread = 0.5
)

// visibleGlyphs drops empty glyphs and control characters, such as the
// line-break marker Content emits after each TJ
func visibleGlyphs(texts []pdf.Text) []pdf.Text {
	out := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimFunc(t.S, unicode.IsControl) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// hasMetrics reports whether every printable glyph has a width
func hasMetrics(glyphs []pdf.Text) bool {
	for _, g := range glyphs {
		if g.W <= 0 && !isBlank(g.S) {
			return false
		}
	}
	return true
}

// groupRows buckets glyphs into visual rows, top to bottom, each sorted left
// to right.
func groupRows(glyphs []pdf.Text) []pdf.TextHorizontal {
	sorted := make([]pdf.Text, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var rows []pdf.TextHorizontal
	var top float64
	for _, g := range sorted {
		if len(rows) == 0 || top-g.Y > rowSpread*math.Abs(g.FontSize) {
			rows = append(rows, pdf.TextHorizontal{})
			top = g.Y
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], g)
	}

	for _, row := range rows {
		sort.Stable(row)
	}
	return rows
}

// joinGlyphs rebuilds one row from glyphs sorted by X
func joinGlyphs(row pdf.TextHorizontal) string {
	var b strings.Builder
	for i, g := range row {
		if i > 0 {
			prev := row[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > wordGap*math.Abs(prev.FontSize) && !isBlank(prev.S) && !isBlank(g.S) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}

// joinRuns rebuilds one row from the unpositioned text runs of
// GetTextByRow. Rows drawn glyph by glyph are concatenated as is; otherwise
// runs are separated by a single space unless one already supplies the
// whitespace.
func joinRuns(runs pdf.TextHorizontal) string {
	if len(runs) == 0 {
		return ""
	}

	perGlyph := true
	for _, r := range runs {
		if utf8.RuneCountInString(r.S) > 1 {
			perGlyph = false
			break
		}
	}

	var b strings.Builder
	for i, r := range runs {
		if i > 0 && !perGlyph && !endsWithSpace(b.String()) && !startsWithSpace(r.S) {
			b.WriteByte(' ')
		}
		b.WriteString(r.S)
	}

	return b.String()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && unicode.IsSpace(r)
}
