package extract

import (
	"regexp"
	"strings"
)

// shipmentLine is the lexical grammar of a shipment line:
//
//	<package> <lot> <qty with 2 decimals> PC <lb> LB/<kg> KG
//
// It is searched for anywhere in the line, never anchored. Whitespace is
// Unicode whitespace, so columns separated by no-break or other wide spaces
// still match. Digits are ASCII only.
var shipmentLine = regexp.MustCompile(strings.NewReplacer(`\s`, space, `\S`, nonSpace).Replace(
	`(\S+)\s+(\S+)\s+(\d+\.\d{2})\s+PC\s+(\d+)\s+LB/(\d+)\s+KG`))

// space is every rune unicode.IsSpace accepts; RE2's \s is ASCII only.
const (
	space    = `[\t\n\v\f\r \x{85}\p{Z}]`
	nonSpace = `[^\t\n\v\f\r \x{85}\p{Z}]`
)

// MatchCapture holds the raw groups of one matched line, before any typing.
type MatchCapture struct {
	PackageToken string
	LotToken     string
	QuantityText string
	WeightLbText string
	WeightKgText string
}

// MatchLine returns the first shipment capture found in line. ok is false
// when the line holds no shipment data.
func MatchLine(line string) (MatchCapture, bool) {
	m := shipmentLine.FindStringSubmatch(line)
	if m == nil {
		return MatchCapture{}, false
	}

	return MatchCapture{
		PackageToken: m[1],
		LotToken:     m[2],
		QuantityText: m[3],
		WeightLbText: m[4],
		WeightKgText: m[5],
	}, true
}
