package model

import "time"

// CatalogueItem is a rated movie as shown in a user's catalogue.
type CatalogueItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
}

// Rating is a single movie rating given by a user.
type Rating struct {
	MovieID string `json:"movieId"`
	Rating  int    `json:"rating"`
}

// UserRating is the list of ratings returned by the ratings service.
type UserRating struct {
	UserRating []Rating `json:"userRating"`
}

// Movie is the movie metadata returned by the movie info service.
type Movie struct {
	MovieID     string `json:"movieId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OmissionEvent records a catalogue item that was dropped because its movie
// could not be fetched.
type OmissionEvent struct {
	UserID     string    `json:"userId"`
	MovieID    string    `json:"movieId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}
