package service

import (
	"context"
	"strings"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/pillflow/pillflow-backend/internal/pharmacy/events"
	"github.com/pillflow/pillflow-backend/pkg/errors"
	"github.com/pillflow/pillflow-backend/pkg/logger"
)

// MetadataSource returns the identity attributes recorded for a subject
type MetadataSource interface {
	UserMetadata(ctx context.Context, userID string) (map[string]string, error)
}

// UpdateProfileRequest is the payload for saving profile settings
type UpdateProfileRequest struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	PharmacyName    string `json:"pharmacy_name" validate:"max=200"`
	PharmacyAddress string `json:"pharmacy_address" validate:"max=500"`
	PharmacyPhone   string `json:"pharmacy_phone" validate:"max=50"`
}

// nameSource extracts a first and last name from identity metadata.
// Either may be empty.
type nameSource func(meta map[string]string) (first, last string)

// nameSources in precedence order; each field takes the first non-empty value.
var nameSources = []nameSource{
	pairSource("first_name", "last_name"),
	pairSource("given_name", "family_name"),
	splitSource("full_name"),
	splitSource("name"),
}

func pairSource(firstKey, lastKey string) nameSource {
	return func(meta map[string]string) (string, string) {
		return strings.TrimSpace(meta[firstKey]), strings.TrimSpace(meta[lastKey])
	}
}

func splitSource(key string) nameSource {
	return func(meta map[string]string) (string, string) {
		full := strings.TrimSpace(meta[key])
		first, last, _ := strings.Cut(full, " ")
		return first, strings.TrimSpace(last)
	}
}

// NamesFromMetadata resolves a profile's names from identity metadata
func NamesFromMetadata(meta map[string]string) (first, last string) {
	for _, source := range nameSources {
		f, l := source(meta)
		if first == "" {
			first = f
		}
		if last == "" {
			last = l
		}
		if first != "" && last != "" {
			break
		}
	}
	return first, last
}

// ProfileService manages pharmacist profiles, creating them lazily
type ProfileService struct {
	profiles  ProfileStore
	metadata  MetadataSource
	publisher *events.PharmacyEventPublisher
	logger    *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(
	profiles ProfileStore,
	metadata MetadataSource,
	publisher *events.PharmacyEventPublisher,
	log *logger.Logger,
) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		metadata:  metadata,
		publisher: publisher,
		logger:    log,
	}
}

// GetOrCreate returns the subject's profile, creating it from identity
// metadata on first access
func (s *ProfileService) GetOrCreate(ctx context.Context, subjectID string) (*domain.Profile, error) {
	profile, err := s.profiles.Get(ctx, subjectID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	var meta map[string]string
	if s.metadata != nil {
		meta, err = s.metadata.UserMetadata(ctx, subjectID)
		if err != nil {
			return nil, err
		}
	}
	return s.create(ctx, subjectID, meta)
}

// Ensure creates the profile from the given metadata unless one exists
func (s *ProfileService) Ensure(ctx context.Context, subjectID string, meta map[string]string) (*domain.Profile, error) {
	profile, err := s.profiles.Get(ctx, subjectID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	return s.create(ctx, subjectID, meta)
}

func (s *ProfileService) create(ctx context.Context, subjectID string, meta map[string]string) (*domain.Profile, error) {
	first, last := NamesFromMetadata(meta)
	profile := &domain.Profile{ID: subjectID, FirstName: first, LastName: last}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", subjectID).Msg("profile created")
	return profile, nil
}

// Update saves the profile settings
func (s *ProfileService) Update(ctx context.Context, subjectID string, req *UpdateProfileRequest) (*domain.Profile, error) {
	profile := &domain.Profile{
		ID:              subjectID,
		FirstName:       strings.TrimSpace(req.FirstName),
		LastName:        strings.TrimSpace(req.LastName),
		PharmacyName:    strings.TrimSpace(req.PharmacyName),
		PharmacyAddress: strings.TrimSpace(req.PharmacyAddress),
		PharmacyPhone:   strings.TrimSpace(req.PharmacyPhone),
	}

	details := map[string]string{}
	if profile.FirstName == "" {
		details["first_name"] = "is required"
	}
	if profile.LastName == "" {
		details["last_name"] = "is required"
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	s.publisher.PublishProfileUpdated(ctx, profile)
	return profile, nil
}
