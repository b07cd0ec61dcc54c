package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Pages is the text layer of one document as exposed by a PDF-text
// collaborator. Pages are numbered from 1. PageText returns "" for a page
// with no extractable text; an error means the document itself could not be
// read and is returned by Extract unchanged.
type Pages interface {
	NumPages() int
	PageText(page int) (string, error)
}

// TextPages adapts already-extracted page strings to Pages.
type TextPages []string

// FromText returns the given page texts as a document, in order.
func FromText(pages ...string) TextPages {
	return TextPages(pages)
}

// NumPages implements Pages
func (t TextPages) NumPages() int { return len(t) }

// PageText implements Pages
func (t TextPages) PageText(page int) (string, error) {
	if page < 1 || page > len(t) {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", page, len(t))
	}
	return t[page-1], nil
}

// Extract scans every page in order and returns the shipment records found.
// It returns ErrNoData when nothing matched.
func Extract(doc Pages) (*RecordSet, error) {
	acc := newAccumulator()

	for page := 1; page <= doc.NumPages(); page++ {
		text, err := doc.PageText(page)
		if err != nil {
			return nil, err
		}
		if err := acc.addPage(page, text); err != nil {
			return nil, err
		}
	}

	return acc.result()
}

// accumulator collects records for a single document.
type accumulator struct {
	records []ShipmentRecord
	pages   int
	empty   int
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) addPage(page int, text string) error {
	a.pages++
	if text == "" {
		a.empty++
		return nil
	}

	for i, line := range strings.Split(text, "\n") {
		capture, ok := MatchLine(line)
		if !ok {
			continue
		}

		rec, err := Normalize(capture)
		if err != nil {
			var ie *InvariantError
			if errors.As(err, &ie) {
				ie.Page = page
				ie.Line = i + 1
			}
			return err
		}
		a.records = append(a.records, rec)
	}

	return nil
}

func (a *accumulator) result() (*RecordSet, error) {
	if len(a.records) == 0 {
		return nil, ErrNoData
	}

	return &RecordSet{
		Records:      a.records,
		PagesScanned: a.pages,
		EmptyPages:   a.empty,
	}, nil
}
