// Estatewatch - Real Estate Marketplace Risk & Relevance Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/estatewatch

package recommend

import (
	"math"
	"reflect"
	"testing"

	"github.com/tomtom215/estatewatch/internal/models"
)

func TestExtractDefaultProfile(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	want := PreferenceProfile{
		PriceRange:    PriceRange{Min: 100000, Max: 500000},
		PropertyTypes: []string{"house", "apartment"},
		Bedrooms:      []int{3},
		Locations:     []string{},
		Amenities:     []string{"Parking", "WiFi"},
	}

	// Deterministic on every call.
	for i := 0; i < 3; i++ {
		got := e.Extract(nil, nil)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Extract(nil) call %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestExtractUnresolvedListingsFallBackToDefault(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	got := e.Extract([]Interaction{
		{UserID: "u1", ListingID: "gone", Kind: KindFavorited},
	}, map[string]models.Listing{})

	if got.PriceRange != (PriceRange{Min: 100000, Max: 500000}) {
		t.Errorf("PriceRange = %+v, want default", got.PriceRange)
	}
}

func TestExtractWeightedAveragePrice(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	listings := map[string]models.Listing{
		"fav":  {ID: "fav", Price: 300000, PropertyType: "house", Bedrooms: 3, City: "Utrecht"},
		"view": {ID: "view", Price: 150000, PropertyType: "apartment", Bedrooms: 2, City: "Leiden"},
	}
	interactions := []Interaction{
		{UserID: "u1", ListingID: "fav", Kind: KindFavorited},
		{UserID: "u1", ListingID: "view", Kind: KindViewed},
	}

	got := e.Extract(interactions, listings)

	// Weighted average: (2*300000 + 1*150000) / 3 = 250000.
	if math.Abs(got.PriceRange.Min-200000) > 1e-9 || math.Abs(got.PriceRange.Max-300000) > 1e-9 {
		t.Errorf("PriceRange = %+v, want [200000, 300000]", got.PriceRange)
	}

	// Weighted average bedrooms: (2*3 + 1*2) / 3 = 2.67, rounded to 3.
	if !reflect.DeepEqual(got.Bedrooms, []int{3}) {
		t.Errorf("Bedrooms = %v, want [3]", got.Bedrooms)
	}

	// Favorited type outweighs viewed type.
	if !reflect.DeepEqual(got.PropertyTypes, []string{"house", "apartment"}) {
		t.Errorf("PropertyTypes = %v, want [house apartment]", got.PropertyTypes)
	}
	if !reflect.DeepEqual(got.Locations, []string{"Utrecht", "Leiden"}) {
		t.Errorf("Locations = %v, want [Utrecht Leiden]", got.Locations)
	}
}

func TestExtractTopNTruncation(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	listings := map[string]models.Listing{}
	var interactions []Interaction
	cities := []string{"A", "B", "C", "D"}
	for i, city := range cities {
		id := city
		listings[id] = models.Listing{ID: id, Price: 100000, PropertyType: "house", City: city}
		// Later cities get more views so the ordering is unambiguous.
		for j := 0; j <= i; j++ {
			interactions = append(interactions, Interaction{UserID: "u1", ListingID: id, Kind: KindViewed})
		}
	}

	got := e.Extract(interactions, listings)

	if !reflect.DeepEqual(got.Locations, []string{"D", "C", "B"}) {
		t.Errorf("Locations = %v, want top 3 by weight [D C B]", got.Locations)
	}
}

func TestExtractTiesBreakAlphabetically(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	listings := map[string]models.Listing{
		"1": {ID: "1", Price: 100000, PropertyType: "house", Amenities: []string{"WiFi", "Garden"}},
		"2": {ID: "2", Price: 100000, PropertyType: "house", Amenities: []string{"Balcony", "Parking"}},
	}
	interactions := []Interaction{
		{UserID: "u1", ListingID: "1", Kind: KindViewed},
		{UserID: "u1", ListingID: "2", Kind: KindViewed},
	}

	got := e.Extract(interactions, listings)

	want := []string{"Balcony", "Garden", "Parking", "WiFi"}
	if !reflect.DeepEqual(got.Amenities, want) {
		t.Errorf("Amenities = %v, want %v (alphabetical on equal weight)", got.Amenities, want)
	}
}

func TestExtractAreaAndBathrooms(t *testing.T) {
	e := NewPreferenceExtractor(DefaultConfig().Extractor)

	listings := map[string]models.Listing{
		"1": {ID: "1", Price: 100000, PropertyType: "house", Bathrooms: 2, Area: 120},
		"2": {ID: "2", Price: 100000, PropertyType: "house", Bathrooms: 1, Area: 0}, // area unknown
	}
	interactions := []Interaction{
		{UserID: "u1", ListingID: "1", Kind: KindViewed},
		{UserID: "u1", ListingID: "2", Kind: KindViewed},
	}

	got := e.Extract(interactions, listings)

	// Unknown areas stay out of the average.
	if got.AvgArea != 120 {
		t.Errorf("AvgArea = %f, want 120", got.AvgArea)
	}
	// (2 + 1) / 2 = 1.5 rounds to 2.
	if got.Bathrooms != 2 {
		t.Errorf("Bathrooms = %d, want 2", got.Bathrooms)
	}
}
