package models

// Place is a named location returned by a reverse geocoding provider.
type Place struct {
	Name     string // Name is the human readable name of the place.
	Category string // Category is "class:type" as reported by the provider, e.g. "highway:tertiary".
}
