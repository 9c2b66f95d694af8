package services

import "errors"

var (
	ErrFeedUnavailable  = errors.New("animal feed unavailable")
	ErrMalformedPayload = errors.New("animal feed payload is malformed")
	ErrAnimalNotFound   = errors.New("animal not found")
	ErrNoAnimalSelected = errors.New("no animal selected")

	ErrLocationUnavailable = errors.New("user location unavailable")
	ErrMarkerNotFound      = errors.New("animal marker not found")
)
