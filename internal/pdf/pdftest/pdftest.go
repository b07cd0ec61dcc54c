// Package pdftest builds small text-only PDF documents for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// helveticaWidths are the Helvetica advance widths for codes 32 to 126, in
// 1/1000 em.
var helveticaWidths = []int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

// Build returns a PDF with one page per element of pages. Each string of a
// page is drawn on its own row in Helvetica, top to bottom. A nil or empty
// page produces a page without a text layer.
func Build(pages ...[]string) []byte {
	return build(pages, func(line string) string {
		return fmt.Sprintf("(%s) Tj", escape(line))
	})
}

// BuildTJ is Build for rows given as the body of a TJ array, such as
// "(PKG.A) 30 (1) -400 (LOT/J7)". Numbers move the next glyph left by n/1000
// of the font size, so negative numbers open a gap.
func BuildTJ(pages ...[]string) []byte {
	return build(pages, func(row string) string {
		return "[" + row + "] TJ"
	})
}

func build(pages [][]string, show func(string) string) []byte {
	var objects []string

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	widths := make([]string, len(helveticaWidths))
	for i, w := range helveticaWidths {
		widths[i] = fmt.Sprint(w)
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding "+
			"/FirstChar 32 /LastChar 126 /Widths [%s] >>", strings.Join(widths, " ")),
	)

	for i, lines := range pages {
		content := pageContent(lines, show)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func pageContent(lines []string, show func(string) string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "BT /F1 10 Tf 1 0 0 1 50 %d Tm %s ET", 750-14*i, show(line))
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
