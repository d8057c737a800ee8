package domain

import "time"

// Asset references binary content stored by the server. Bytes never travel
// inside records.
type Asset struct {
	Name        string
	URL         string
	ContentType string
}

func (Asset) Kind() Kind { return KindAsset }
func (Asset) isValue()   {}

type Geolocation struct {
	Latitude  float64
	Longitude float64
}

func NewGeolocation(latitude, longitude float64) Geolocation {
	return Geolocation{Latitude: latitude, Longitude: longitude}
}

func (Geolocation) Kind() Kind { return KindGeolocation }
func (Geolocation) isValue()   {}

// Date marks a timestamp that must be transmitted as a date rather than a
// plain string.
type Date struct {
	Time time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: t.UTC()}
}

func (Date) Kind() Kind { return KindDate }
func (Date) isValue()   {}
