package models

// PlaceUnavailable is the place name used when no name could be resolved.
const PlaceUnavailable = "(indisponível)"

// Result is the outcome of processing a single link.
type Result struct {
	Link        string       // Link is the link exactly as read from the input file.
	Place       string       // Place is the resolved place name.
	Coordinates *Coordinates // Coordinates is nil when the link could not be resolved.
	Err         error        // Err holds the reason of a failure, if any.
}

// OK reports whether the link produced a coordinate pair.
func (r Result) OK() bool {
	return r.Coordinates != nil
}

// Report groups the results of a batch run in input order.
type Report struct {
	Rows   []Result // Rows are the successfully resolved links.
	Failed []string // Failed are the links that did not produce coordinates.
}
