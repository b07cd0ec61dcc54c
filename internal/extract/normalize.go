package extract

import (
	"strconv"
	"strings"
)

// Normalize derives a typed record from a capture.
//
// The package token keeps only what follows its first dot and is passed
// through whole when there is no dot. The lot token keeps what follows its
// first slash and becomes empty when there is no slash.
func Normalize(c MatchCapture) (ShipmentRecord, error) {
	qty, err := strconv.ParseFloat(c.QuantityText, 64)
	if err != nil {
		return ShipmentRecord{}, &InvariantError{Field: "Qty Ship", Text: c.QuantityText, Err: err}
	}

	lb, err := strconv.Atoi(c.WeightLbText)
	if err != nil {
		return ShipmentRecord{}, &InvariantError{Field: "Net Weight (LB)", Text: c.WeightLbText, Err: err}
	}

	kg, err := strconv.Atoi(c.WeightKgText)
	if err != nil {
		return ShipmentRecord{}, &InvariantError{Field: "Net Weight (KG)", Text: c.WeightKgText, Err: err}
	}

	return ShipmentRecord{
		PackageBundle: packageBundle(c.PackageToken),
		LotJobNum:     lotJobNum(c.LotToken),
		QtyShip:       qty,
		UOM:           UOM,
		NetWeightLb:   lb,
		NetWeightKg:   kg,
	}, nil
}

func packageBundle(token string) string {
	_, after, found := strings.Cut(token, ".")
	if !found {
		return token
	}
	// "A.B.C" keeps only "B"
	bundle, _, _ := strings.Cut(after, ".")
	return bundle
}

func lotJobNum(token string) string {
	_, after, found := strings.Cut(token, "/")
	if !found {
		return ""
	}
	job, _, _ := strings.Cut(after, "/")
	return job
}
