package services

import (
	"context"
	"strings"
	"time"

	"ocha/internal/apperr"
	"ocha/internal/geo"
	"ocha/internal/models"
	"ocha/internal/repositories"
	"ocha/internal/validation"
)

// StoreInput carries a create or partial update. Nil fields are left alone.
type StoreInput struct {
	Name         *string              `json:"name"`
	Phone        *string              `json:"phone"`
	Email        *string              `json:"email"`
	Address      *models.Address      `json:"address"`
	Location     *models.GeoPoint     `json:"location"`
	IsActive     *bool                `json:"is_active"`
	OpeningHours *models.OpeningHours `json:"opening_hours"`
	TimeZone     *string              `json:"time_zone"`
}

// StorePage is one page of stores. In radius mode Stores holds
// models.NearbyStore values.
type StorePage struct {
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	TotalStores int64 `json:"totalStores"`
	Stores      any   `json:"stores"`
}

// StoreOpening answers "is this store open at t".
type StoreOpening struct {
	StoreID  string    `json:"store_id"`
	At       time.Time `json:"at"`
	Open     bool      `json:"open"`
	Schedule []string  `json:"schedule"`
}

// StoreService handles business logic related to stores.
type StoreService struct {
	repo        repositories.StoreRepository
	validate    *validation.Validator
	defaultZone string
}

// NewStoreService creates a new StoreService.
func NewStoreService(repo repositories.StoreRepository, validate *validation.Validator) *StoreService {
	return &StoreService{repo: repo, validate: validate}
}

// WithTimeZone sets the zone given to stores created without one.
func (s *StoreService) WithTimeZone(name string) *StoreService {
	s.defaultZone = name
	return s
}

// ListStores returns a plain page of stores.
func (s *StoreService) ListStores(ctx context.Context, page repositories.Page) (*StorePage, error) {
	stores, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, err
	}
	if stores == nil {
		stores = []models.Store{}
	}
	return &StorePage{
		Page:        page.Number,
		TotalPages:  repositories.TotalPages(total, page.Limit),
		TotalStores: total,
		Stores:      stores,
	}, nil
}

// FindNearby returns active stores within radiusMeters of (lng, lat),
// closest first. A non-positive radius means geo.DefaultRadiusMeters.
func (s *StoreService) FindNearby(ctx context.Context, lng, lat, radiusMeters float64, page repositories.Page) (*StorePage, error) {
	center := geo.Point{Lng: lng, Lat: lat}
	if !center.Valid() {
		return nil, apperr.Validation(apperr.CodeInvalidQuery, "coordinates out of range: lng must be in [-180,180], lat in [-90,90]")
	}
	stores, total, err := s.repo.Nearby(ctx, center, geo.NormalizeRadius(radiusMeters), page)
	if err != nil {
		return nil, err
	}
	return &StorePage{
		Page:        page.Number,
		TotalPages:  repositories.TotalPages(total, page.Limit),
		TotalStores: total,
		Stores:      stores,
	}, nil
}

// GetStoreByID retrieves a single store.
func (s *StoreService) GetStoreByID(ctx context.Context, id string) (*models.Store, error) {
	return s.repo.GetByID(ctx, id)
}

// OpeningAt reports whether the store is open at the instant t. The answer
// and the schedule are read in the store's zone, whatever zone t carries.
func (s *StoreService) OpeningAt(ctx context.Context, id string, t time.Time) (*StoreOpening, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	local := t.In(store.Zone())
	return &StoreOpening{
		StoreID:  store.ID,
		At:       local,
		Open:     store.IsOpenAt(local),
		Schedule: store.ScheduleForDay(local.Weekday()),
	}, nil
}

// CreateStore creates a store. is_active defaults to true and opening hours
// to closed on Sunday, 09:00-17:00 otherwise.
func (s *StoreService) CreateStore(ctx context.Context, in StoreInput) (*models.Store, error) {
	switch {
	case in.Name == nil || strings.TrimSpace(*in.Name) == "":
		return nil, apperr.MissingField("name")
	case in.Email == nil || strings.TrimSpace(*in.Email) == "":
		return nil, apperr.MissingField("email")
	case in.Address == nil:
		return nil, apperr.MissingField("address")
	case in.Location == nil:
		return nil, apperr.MissingField("location")
	}

	store := &models.Store{IsActive: true, OpeningHours: models.DefaultOpeningHours(), TimeZone: s.defaultZone}
	applyStoreInput(store, in)
	if err := s.validate.Struct(store); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// UpdateStore applies a partial update. The slug follows the name.
func (s *StoreService) UpdateStore(ctx context.Context, id string, in StoreInput) (*models.Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyStoreInput(store, in)
	if err := s.validate.Struct(store); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

// DeleteStore removes a store. Stores still referenced by orders cannot be deleted.
func (s *StoreService) DeleteStore(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func applyStoreInput(st *models.Store, in StoreInput) {
	if in.Name != nil {
		st.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		st.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		st.Email = normalizeEmail(*in.Email)
	}
	if in.Address != nil {
		st.Address = *in.Address
	}
	if in.Location != nil {
		st.Location = *in.Location
		if st.Location.Type == "" {
			st.Location.Type = "Point"
		}
	}
	if in.IsActive != nil {
		st.IsActive = *in.IsActive
	}
	if in.OpeningHours != nil {
		st.OpeningHours = *in.OpeningHours
	}
	if in.TimeZone != nil {
		st.TimeZone = strings.TrimSpace(*in.TimeZone)
	}
}
