package models

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Latitude  float64 // Latitude of the geographical point.
	Longitude float64 // Longitude of the geographical point.
}

// Valid reports whether the point lies within the WGS84 latitude and longitude ranges.
func (c Coordinates) Valid() bool {
	const (
		maxLatitude  = 90
		maxLongitude = 180
	)

	return c.Latitude >= -maxLatitude && c.Latitude <= maxLatitude &&
		c.Longitude >= -maxLongitude && c.Longitude <= maxLongitude
}
