package services

import (
	"context"
	"fmt"
	"math"
	"net/url"

	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
)

const (
	TileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = "© OpenStreetMap contributors"

	DefaultZoom   = 13
	UserZoom      = 15
	AnimalZoom    = 16
	BoundsPadding = 30

	UserPopupID = "me"
)

var DefaultCenter = m.LatLng{Lat: 53.483, Lng: -2.237}

var emojiByID = map[string]string{
	"red-fox":     "🦊",
	"barn-owl":    "🦉",
	"hedgehog":    "🦔",
	"otter":       "🦦",
	"common-frog": "🐸",
	"roe-deer":    "🦌",
}

func Emoji(id string) string {
	if e, ok := emojiByID[id]; ok {
		return e
	}
	return "🐾"
}

// Markers places every record with finite coordinates.
func Markers(animals []m.AnimalRecord) []m.Marker {
	markers := make([]m.Marker, 0, len(animals))
	for _, a := range animals {
		if !a.HasLocation() || !finite(*a.Lat) || !finite(*a.Lng) {
			continue
		}
		markers = append(markers, m.Marker{
			ID:        a.ID,
			Name:      a.Name,
			Zone:      a.Zone,
			Emoji:     Emoji(a.ID),
			DetailURL: "animal.html?id=" + url.QueryEscape(a.ID),
			LatLng:    m.LatLng{Lat: *a.Lat, Lng: *a.Lng},
		})
	}
	return markers
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// LocateMe flies to the user's position.
func LocateMe(user *m.LatLng) (m.Viewport, error) {
	if user == nil || !finite(user.Lat) || !finite(user.Lng) {
		return m.Viewport{}, ErrLocationUnavailable
	}
	center := *user
	return m.Viewport{Center: &center, Zoom: UserZoom, PopupID: UserPopupID}, nil
}

// ShowAll fits every marker in view. ok is false when there is nothing to
// show.
func ShowAll(markers []m.Marker) (m.Viewport, bool) {
	if len(markers) == 0 {
		return m.Viewport{}, false
	}
	b := m.Bounds{SouthWest: markers[0].LatLng, NorthEast: markers[0].LatLng}
	for _, mk := range markers[1:] {
		b.SouthWest.Lat = math.Min(b.SouthWest.Lat, mk.Lat)
		b.SouthWest.Lng = math.Min(b.SouthWest.Lng, mk.Lng)
		b.NorthEast.Lat = math.Max(b.NorthEast.Lat, mk.Lat)
		b.NorthEast.Lng = math.Max(b.NorthEast.Lng, mk.Lng)
	}
	return m.Viewport{Bounds: &b, Padding: BoundsPadding}, true
}

func LocateAnimal(markers []m.Marker, id string) (m.Viewport, error) {
	if id == "" {
		return m.Viewport{}, ErrNoAnimalSelected
	}
	for _, mk := range markers {
		if mk.ID == id {
			center := mk.LatLng
			return m.Viewport{Center: &center, Zoom: AnimalZoom, PopupID: mk.ID}, nil
		}
	}
	return m.Viewport{}, fmt.Errorf("%w: %s", ErrMarkerNotFound, id)
}

type MapService struct {
	animals *AnimalService
}

func NewMapService(animals *AnimalService) *MapService {
	return &MapService{animals: animals}
}

// Shell is the map before any animal data is loaded: tiles and the default
// centre only.
func Shell() *m.MapView {
	return &m.MapView{
		Initial:     m.Viewport{Center: &m.LatLng{Lat: DefaultCenter.Lat, Lng: DefaultCenter.Lng}, Zoom: DefaultZoom},
		TileURL:     TileURL,
		Attribution: Attribution,
		Markers:     []m.Marker{},
		Choices:     []m.AnimalChoice{},
		Status:      "Loading map…",
	}
}

// View builds the map model. When user is known the initial view flies to
// it; otherwise it opens on the default centre.
func (s *MapService) View(ctx context.Context, user *m.LatLng) (*m.MapView, error) {
	view := Shell()

	animals, err := s.animals.FetchAnimals(ctx)
	if err != nil {
		view.Status = "Map ready, but could not load animal data."
		return view, err
	}
	view.Markers = Markers(animals)
	for _, a := range animals {
		view.Choices = append(view.Choices, m.AnimalChoice{ID: a.ID, Name: a.Name})
	}

	if vp, err := LocateMe(user); err == nil {
		view.Initial = vp
		view.Status = fmt.Sprintf("Location found. Loaded %d animals.", len(animals))
	} else {
		view.Status = fmt.Sprintf("Map ready. Loaded %d animals.", len(animals))
	}
	return view, nil
}

// Viewport answers one of the map buttons: "me", "all" or "animal".
func (s *MapService) Viewport(ctx context.Context, action, id string, user *m.LatLng) (m.Viewport, string, error) {
	switch action {
	case "me":
		vp, err := LocateMe(user)
		if err != nil {
			return vp, "Please allow location access to locate you.", err
		}
		return vp, "", nil
	case "all", "animal":
	default:
		return m.Viewport{}, "Unknown map action.", fmt.Errorf("unknown map action %q", action)
	}

	animals, err := s.animals.FetchAnimals(ctx)
	if err != nil {
		return m.Viewport{}, "Map ready, but could not load animal data.", err
	}
	markers := Markers(animals)

	if action == "all" {
		vp, ok := ShowAll(markers)
		if !ok {
			return vp, "No animals to show.", nil
		}
		return vp, "", nil
	}

	vp, err := LocateAnimal(markers, id)
	switch {
	case err == nil:
		return vp, "", nil
	case id == "":
		return vp, "Choose an animal from the list first.", err
	default:
		return vp, "Could not find that animal marker.", err
	}
}
