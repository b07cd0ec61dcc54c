// Package extract turns the text layer of a packing-list document into
// shipment records.
//
// The package is a pure function of its input: it never opens files, never
// logs, and holds no package-level mutable state, so callers may run any
// number of extractions concurrently.
package extract

// UOM is the unit of measure carried by every shipment line.
const UOM = "PC"

// Columns is the fixed header of an exported record set. Order and spelling
// are part of the output contract.
var Columns = []string{
	"pkg_bundle",
	"Lot/Job Num",
	"Qty Ship",
	"UOM",
	"Net Weight (LB)",
	"Net Weight (KG)",
}

// ShipmentRecord is one normalized packing-list row
type ShipmentRecord struct {
	PackageBundle string  `json:"pkg_bundle"`
	LotJobNum     string  `json:"lot_job_num"`
	QtyShip       float64 `json:"qty_ship"`
	UOM           string  `json:"uom"`
	NetWeightLb   int     `json:"net_weight_lb"`
	NetWeightKg   int     `json:"net_weight_kg"`
}

// RecordSet is the result of a successful extraction. Records is never empty.
type RecordSet struct {
	Records      []ShipmentRecord `json:"records"`
	PagesScanned int              `json:"pages_scanned"`
	EmptyPages   int              `json:"empty_pages"`
}

// Len returns the number of records
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}
