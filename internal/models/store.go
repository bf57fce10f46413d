package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"ocha/internal/geo"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// GeoPoint is a GeoJSON point; Coordinates is [longitude, latitude].
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewGeoPoint builds a GeoJSON point from a longitude and a latitude.
func NewGeoPoint(lng, lat float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Longitude() float64 { return p.Coordinates[0] }
func (p GeoPoint) Latitude() float64  { return p.Coordinates[1] }

// Geo converts the GeoJSON point to an index point.
func (p GeoPoint) Geo() geo.Point {
	return geo.Point{Lng: p.Longitude(), Lat: p.Latitude()}
}

// Address is the postal address of a store.
type Address struct {
	Line1   string `json:"line1" validate:"required"`
	City    string `json:"city" validate:"required"`
	Zipcode string `json:"zipcode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// OpeningHours holds one entry per weekday, Sunday first. An empty entry
// means closed; otherwise it is an [open, close] pair of "HH:MM" strings.
type OpeningHours [][]string

// DefaultOpeningHours is closed on Sunday and 09:00-17:00 the rest of the week.
func DefaultOpeningHours() OpeningHours {
	oh := OpeningHours{{}}
	for i := 1; i < 7; i++ {
		oh = append(oh, []string{"09:00", "17:00"})
	}
	return oh
}

// Validate checks the seven-entry shape and the time format.
func (oh OpeningHours) Validate() error {
	if len(oh) != 7 {
		return fmt.Errorf("opening hours must have exactly 7 entries, got %d", len(oh))
	}
	for day, entry := range oh {
		if len(entry) == 0 {
			continue
		}
		if len(entry) != 2 {
			return fmt.Errorf("day %d: use [] for closed or [\"HH:MM\", \"HH:MM\"] for open", day)
		}
		if !hhmm.MatchString(entry[0]) || !hhmm.MatchString(entry[1]) {
			return fmt.Errorf("day %d: times must be HH:MM in 24-hour format", day)
		}
	}
	return nil
}

func (oh OpeningHours) Value() (driver.Value, error) {
	b, err := json.Marshal([][]string(oh))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (oh *OpeningHours) Scan(src any) error {
	return scanJSON(src, (*[][]string)(oh))
}

// Store represents a physical shop where orders are picked up.
type Store struct {
	ID           string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string       `json:"name" gorm:"uniqueIndex;type:varchar(50)" validate:"required,min=3,max=50"`
	Slug         string       `json:"slug" gorm:"uniqueIndex;type:varchar(60)"`
	Phone        string       `json:"phone,omitempty" validate:"omitempty,phone"`
	Email        string       `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Address      Address      `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Location     GeoPoint     `json:"location" gorm:"-"`
	IsActive     bool         `json:"is_active" gorm:"index"`
	OpeningHours OpeningHours `json:"opening_hours" gorm:"type:text"`
	TimeZone     string       `json:"time_zone" gorm:"type:varchar(64)" validate:"omitempty,timezone"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Persisted form of Location, kept in sync by the hooks below.
	Longitude float64 `json:"-"`
	Latitude  float64 `json:"-"`
	Cell      string  `json:"-" gorm:"column:s2_cell;type:varchar(16);index"`
}

// NearbyStore is a store returned by a radius search.
type NearbyStore struct {
	Store
	DistanceMeters float64 `json:"distance_meters"`
}

// BeforeSave regenerates the slug and the geo index columns.
func (s *Store) BeforeSave(tx *gorm.DB) error {
	s.Slug = slug.Make(s.Name)
	s.Longitude = s.Location.Longitude()
	s.Latitude = s.Location.Latitude()
	s.Cell = geo.CellKey(s.Location.Geo())
	return nil
}

// AfterFind rebuilds the GeoJSON location from the stored columns.
func (s *Store) AfterFind(tx *gorm.DB) error {
	s.Location = NewGeoPoint(s.Longitude, s.Latitude)
	return nil
}

// ScheduleForDay returns the opening entry for a weekday (0 = Sunday).
func (s *Store) ScheduleForDay(day time.Weekday) []string {
	if int(day) < 0 || int(day) >= len(s.OpeningHours) {
		return []string{}
	}
	if s.OpeningHours[day] == nil {
		return []string{}
	}
	return s.OpeningHours[day]
}

// Zone is the IANA zone the opening hours are written in, UTC when unset or unknown.
func (s *Store) Zone() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOpenAt reports whether the store is open at the instant t, read on the
// store's own wall clock. Bounds are inclusive.
func (s *Store) IsOpenAt(t time.Time) bool {
	local := t.In(s.Zone())
	schedule := s.ScheduleForDay(local.Weekday())
	if len(schedule) != 2 {
		return false
	}
	now := local.Format("15:04")
	return now >= schedule[0] && now <= schedule[1]
}
