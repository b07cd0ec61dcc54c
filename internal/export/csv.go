package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/a3tai/packlist/internal/extract"
)

// WriteCSV writes the header row and one row per record. Quantities keep two
// decimals; weights are plain integers.
func WriteCSV(w io.Writer, rs *extract.RecordSet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(extract.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rs.Records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSV is WriteCSV into a byte slice
func CSV(rs *extract.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadCSV parses bytes produced by WriteCSV back into a record set
func ReadCSV(r io.Reader) (*extract.RecordSet, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}

	rs := &extract.RecordSet{}
	for i, cols := range rows[1:] {
		if len(cols) != len(extract.Columns) {
			return nil, fmt.Errorf("read csv: row %d has %d columns", i+2, len(cols))
		}
		qty, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i+2, err)
		}
		lb, err := strconv.Atoi(cols[4])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i+2, err)
		}
		kg, err := strconv.Atoi(cols[5])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i+2, err)
		}
		rs.Records = append(rs.Records, extract.ShipmentRecord{
			PackageBundle: cols[0],
			LotJobNum:     cols[1],
			QtyShip:       qty,
			UOM:           cols[3],
			NetWeightLb:   lb,
			NetWeightKg:   kg,
		})
	}

	return rs, nil
}

func row(r extract.ShipmentRecord) []string {
	return []string{
		r.PackageBundle,
		r.LotJobNum,
		strconv.FormatFloat(r.QtyShip, 'f', 2, 64),
		r.UOM,
		strconv.Itoa(r.NetWeightLb),
		strconv.Itoa(r.NetWeightKg),
	}
}
