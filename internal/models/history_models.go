package models

import "time"

// DedupKey identifies a history record. Matching is exact and case-sensitive.
type DedupKey struct {
	RestaurantName string
	FoodQuery      string
	Location       string
}

type HistoryRecord struct {
	ID             string    `json:"id" dynamodbav:"history_id"`
	DedupHash      string    `json:"-" dynamodbav:"dedup_key"`
	RestaurantName string    `json:"restaurant_name" dynamodbav:"restaurant_name"`
	Rating         float64   `json:"rating" dynamodbav:"rating"`
	Address        string    `json:"address" dynamodbav:"address"`
	MapLink        string    `json:"map_link,omitempty" dynamodbav:"map_link,omitempty"`
	FoodQuery      string    `json:"food_query" dynamodbav:"food_query"`
	Location       string    `json:"location" dynamodbav:"location"`
	Timestamp      time.Time `json:"timestamp" dynamodbav:"timestamp,unixtime"`
}

func (r HistoryRecord) Key() DedupKey {
	return DedupKey{
		RestaurantName: r.RestaurantName,
		FoodQuery:      r.FoodQuery,
		Location:       r.Location,
	}
}
