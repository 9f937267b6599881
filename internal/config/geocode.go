package config

import (
	"fmt"
	"log"

	"github.com/kelvins/geocoder"
)

// geocode is replaced in tests.
var geocode = func(apiKey, city, country string) (lat, lon float64, err error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

// resolveLocation replaces Lat/Lon with the geocoded city when both a city
// and a geocoder key are configured.
func (c *AppConfig) resolveLocation() error {
	if c.LocationCity == "" {
		return nil
	}
	if c.GeocoderAPIKey == "" {
		log.Printf("INFO: WEATHER_LOCATION_CITY set without GEOCODER_API_KEY; using %.6f,%.6f", c.Lat, c.Lon)
		return nil
	}

	lat, lon, err := geocode(c.GeocoderAPIKey, c.LocationCity, c.LocationCountry)
	if err != nil {
		return fmt.Errorf("geocode %s, %s: %w", c.LocationCity, c.LocationCountry, err)
	}
	log.Printf("INFO: resolved %s, %s to %.6f,%.6f", c.LocationCity, c.LocationCountry, lat, lon)
	c.Lat, c.Lon = lat, lon
	return nil
}
