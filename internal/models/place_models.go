package models

// PlaceRecord is a raw listing returned by the place source. Optional fields
// are pointers so a missing value is distinguishable from an empty one; the
// restaurant assembler applies the defaults.
type PlaceRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  *string `json:"address,omitempty"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

// Foursquare Places API payloads
type FoursquareSearchResponse struct {
	Results []FoursquarePlace `json:"results"`
}

type FoursquarePlace struct {
	FsqPlaceID string             `json:"fsq_place_id"`
	FsqID      string             `json:"fsq_id"`
	Name       string             `json:"name"`
	Location   FoursquareLocation `json:"location"`
}

type FoursquareLocation struct {
	Address          string `json:"address"`
	FormattedAddress string `json:"formatted_address"`
}

type FoursquareTip struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type FoursquarePhoto struct {
	ID     string `json:"id"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}
