package models

// Location is a named point stored in GeoJSON order (longitude first).
type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Name        string    `json:"name" bson:"name"`
}

func NewLocation(name string, lat, lon float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{lon, lat},
		Name:        name,
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

// HasCoordinates reports whether the point carries a usable lat/lon pair.
func (l Location) HasCoordinates() bool {
	return len(l.Coordinates) == 2
}
