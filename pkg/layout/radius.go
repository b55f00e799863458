package layout

// PharmacyRadius is the fixed radius of the root node.
const PharmacyRadius = 32

// NodeRadius returns the display radius of a node.
//
// The pharmacy is always PharmacyRadius. Contractors grow with their child
// count in piecewise-linear bands; a contractor with no children gets the
// default radius 16.
func NodeRadius(isPharmacy bool, childrenCount int) float64 {
	if isPharmacy {
		return PharmacyRadius
	}
	c := float64(childrenCount)
	switch {
	case childrenCount <= 0:
		return 16
	case childrenCount <= 10:
		return 5 + (c-1)*0.7
	case childrenCount <= 50:
		return 12 + (c-11)*0.3
	case childrenCount <= 100:
		return 24 + (c-51)*0.2
	default:
		return 34 + (c-101)*0.1
	}
}
