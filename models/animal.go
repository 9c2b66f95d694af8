package models

type AnimalRecord struct {
	ID             string   `json:"id"             validate:"required"`
	Name           string   `json:"name"           validate:"required"`
	ScientificName string   `json:"scientificName"`
	Summary        string   `json:"summary"`
	Habitat        string   `json:"habitat"`
	Diet           string   `json:"diet"`
	Zone           string   `json:"zone"`
	ImageURL       string   `json:"imageUrl"`
	Lat            *float64 `json:"lat,omitempty"  validate:"omitnil,latitude"`
	Lng            *float64 `json:"lng,omitempty"  validate:"omitnil,longitude"`
}

// HasLocation reports whether the record can be placed on the map.
func (a AnimalRecord) HasLocation() bool {
	return a.Lat != nil && a.Lng != nil
}

type AnimalCard struct {
	AnimalRecord
	Favourite bool `json:"favourite"`
}

type AnimalsResponse struct {
	Animals []AnimalCard `json:"animals"`
	Count   int          `json:"count"`
	Total   int          `json:"total"`
	Status  string       `json:"status"`
}

type FavouritesResponse struct {
	IDs     []string     `json:"ids"`
	Animals []AnimalCard `json:"animals"`
	Count   int          `json:"count"`
	Status  string       `json:"status"`
}
