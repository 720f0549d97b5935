package user

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const MinNameLength = 2

var (
	ErrNameTooShort    = errors.New("name must be at least 2 characters")
	ErrInvalidImageURL = errors.New("image must be a valid URL")
)

// Store is the persistence used by Service
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, p ProfileUpdate) (*User, error)
}

// Service implements the profile operations of the signed-in user
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Me returns the user with the given id
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, userID)
}

// UpdateProfile validates p and applies it to the user
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, p ProfileUpdate) (*User, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Name == nil && p.Image == nil {
		return s.store.GetByID(ctx, userID)
	}
	return s.store.UpdateProfile(ctx, userID, p)
}

func (p ProfileUpdate) Validate() error {
	if p.Name != nil {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
	}
	if p.Image != nil {
		image := strings.TrimSpace(*p.Image)
		if image == "" {
			return nil
		}
		u, err := url.ParseRequestURI(image)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return ErrInvalidImageURL
		}
	}
	return nil
}

// ValidateName checks the display name rules shared by registration and profile edits
func ValidateName(name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < MinNameLength {
		return ErrNameTooShort
	}
	return nil
}
