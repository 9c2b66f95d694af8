package models

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Marker struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Zone      string `json:"zone"`
	Emoji     string `json:"emoji"`
	DetailURL string `json:"detail_url"`
	LatLng
}

type Bounds struct {
	SouthWest LatLng `json:"south_west"`
	NorthEast LatLng `json:"north_east"`
}

// Viewport is either a fly-to (Center and Zoom) or a fit-bounds (Bounds and
// Padding) instruction for the map widget.
type Viewport struct {
	Center  *LatLng `json:"center,omitempty"`
	Zoom    int     `json:"zoom,omitempty"`
	Bounds  *Bounds `json:"bounds,omitempty"`
	Padding int     `json:"padding,omitempty"`
	PopupID string  `json:"popup_id,omitempty"`
}

// AnimalChoice is one entry of the map's animal picker.
type AnimalChoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MapView struct {
	Markers     []Marker       `json:"markers"`
	Choices     []AnimalChoice `json:"choices"`
	Initial     Viewport       `json:"initial"`
	TileURL     string         `json:"tile_url"`
	Attribution string         `json:"attribution"`
	Status      string         `json:"status"`
}
