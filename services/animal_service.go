package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"golang.org/x/text/cases"

	"github.com/ChrisTheAbysswalker/wildlife-atlas/config"
	"github.com/ChrisTheAbysswalker/wildlife-atlas/favourites"
	m "github.com/ChrisTheAbysswalker/wildlife-atlas/models"
)

type AnimalService struct {
	client     *http.Client
	feedURL    string
	validate   *validator.Validate
	favourites *favourites.Store
}

func NewAnimalService(cfg *config.Config, client *http.Client, favs *favourites.Store) *AnimalService {
	if client == nil {
		client = http.DefaultClient
	}
	return &AnimalService{
		client:     client,
		feedURL:    cfg.FeedURL,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		favourites: favs,
	}
}

// FetchAnimals downloads and validates the whole feed. Every call goes to
// the feed; nothing is memoised here.
func (s *AnimalService) FetchAnimals(ctx context.Context) ([]m.AnimalRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	return s.decode(body)
}

func (s *AnimalService) decode(body []byte) ([]m.AnimalRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: must be a JSON array: %w", ErrMalformedPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: must be a JSON array", ErrMalformedPayload)
	}

	animals := make([]m.AnimalRecord, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		var a m.AnimalRecord
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedPayload, i, err)
		}
		if err := s.validate.Struct(a); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrMalformedPayload, i, err)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrMalformedPayload, a.ID)
		}
		seen[a.ID] = true
		animals = append(animals, a)
	}
	return animals, nil
}

// Filter keeps records whose name, scientific name or zone contains query,
// ignoring case. An empty query keeps everything.
func Filter(animals []m.AnimalRecord, query string) []m.AnimalRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return animals
	}

	folder := cases.Fold()
	q := folder.String(query)
	filtered := make([]m.AnimalRecord, 0, len(animals))
	for _, a := range animals {
		if strings.Contains(folder.String(a.Name), q) ||
			strings.Contains(folder.String(a.ScientificName), q) ||
			strings.Contains(folder.String(a.Zone), q) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

func FindByID(animals []m.AnimalRecord, id string) (*m.AnimalRecord, error) {
	for _, a := range animals {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAnimalNotFound, id)
}

// GetAnimal resolves one record by id from a fresh copy of the feed.
func (s *AnimalService) GetAnimal(ctx context.Context, id string) (*m.AnimalRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNoAnimalSelected
	}
	animals, err := s.FetchAnimals(ctx)
	if err != nil {
		return nil, err
	}
	return FindByID(animals, id)
}

// Cards pairs each record with its favourite flag.
func (s *AnimalService) Cards(animals []m.AnimalRecord) []m.AnimalCard {
	favs := make(map[string]bool)
	for _, id := range s.favourites.List() {
		favs[id] = true
	}

	cards := make([]m.AnimalCard, 0, len(animals))
	for _, a := range animals {
		cards = append(cards, m.AnimalCard{AnimalRecord: a, Favourite: favs[a.ID]})
	}
	return cards
}

// FavouriteAnimals returns the stored ids and the records in the feed that
// match them. The feed is not fetched when there are no favourites.
func (s *AnimalService) FavouriteAnimals(ctx context.Context) ([]string, []m.AnimalRecord, error) {
	ids := s.favourites.List()
	if len(ids) == 0 {
		return ids, nil, nil
	}

	animals, err := s.FetchAnimals(ctx)
	if err != nil {
		return ids, nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var favs []m.AnimalRecord
	for _, a := range animals {
		if wanted[a.ID] {
			favs = append(favs, a)
		}
	}
	return ids, favs, nil
}

// FavouritesStatus is the status line for the favourites page.
func FavouritesStatus(ids []string, favs []m.AnimalRecord) string {
	switch {
	case len(ids) == 0:
		return "No favourites yet. Go to Animals and tap ☆ to save some."
	case len(favs) == 0:
		return "No matching favourites found in the latest animal data."
	default:
		return fmt.Sprintf("%d favourite(s) shown.", len(favs))
	}
}

func (s *AnimalService) IsFavourite(id string) bool {
	return s.favourites.IsFavourite(id)
}

func (s *AnimalService) ToggleFavourite(id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, ErrNoAnimalSelected
	}
	if err := s.favourites.Toggle(id); err != nil {
		return false, fmt.Errorf("toggle favourite %s: %w", id, err)
	}
	fav := s.favourites.IsFavourite(id)
	if fav {
		log.Printf("⭐ Favourite added: %s", id)
	} else {
		log.Printf("☆ Favourite removed: %s", id)
	}
	return fav, nil
}

func (s *AnimalService) FavouriteCount() int {
	return len(s.favourites.List())
}

// UserMessage is the status line shown when a feed load fails.
func UserMessage(err error, subject string) string {
	switch {
	case errors.Is(err, ErrNoAnimalSelected):
		return "No animal selected. Go back and choose an animal."
	case errors.Is(err, ErrAnimalNotFound):
		return "Animal not found. Please go back and try again."
	default:
		return fmt.Sprintf("Could not load %s. Check your internet / data link.", subject)
	}
}
