// Package restaurant merges place records with their rating into the
// Restaurant entity. It is the one place where missing place fields get their
// defaults.
package restaurant

import (
	"net/url"
	"strings"

	"github.com/spacesedan/platepick/internal/models"
)

const (
	UnknownAddress = "Unknown"
	MapSearchURL   = "https://www.google.com/maps/search/?api=1&query="
)

// Assemble builds a Restaurant from a possibly partial place record.
func Assemble(place models.PlaceRecord, agg models.RatingAggregate, status models.ReviewStatus) models.Restaurant {
	address := UnknownAddress
	if place.Address != nil && strings.TrimSpace(*place.Address) != "" {
		address = *place.Address
	}

	imageURL := ""
	if place.PhotoURL != nil {
		imageURL = *place.PhotoURL
	}

	if agg.Excerpts == nil {
		agg.Excerpts = []string{}
	}
	if status == "" {
		status = models.ReviewStatusOK
		if agg.ReviewCount == 0 {
			status = models.ReviewStatusNone
		}
	}

	return models.Restaurant{
		ID:           place.ID,
		Name:         place.Name,
		Address:      address,
		MapLink:      MapLink(place.Name, address),
		ImageURL:     imageURL,
		Rating:       agg,
		HasReviews:   agg.ReviewCount > 0,
		ReviewStatus: status,
	}
}

// MapLink percent-encodes "name, address" into the map search URL. Spaces
// become %20, not '+'.
func MapLink(name, address string) string {
	query := url.QueryEscape(name + ", " + address)
	return MapSearchURL + strings.ReplaceAll(query, "+", "%20")
}
