package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
	"github.com/avinay/ntc-blueprint/pkg/validation"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateContact = errors.New("contact with this email already exists")
	ErrStorage          = errors.New("storage fault")
	ErrArchiveDisabled  = errors.New("gcs not configured")
)

// Service is the networking profile store: "my profile", the scanned
// contact list, and the queries over them. Storage faults on reads are
// logged and degrade to empty results; on writes they wrap ErrStorage.
type Service struct {
	Store      repo.KeyValueStore
	GCS        *storage.Client
	GCSBucket  string
	Logger     *logrus.Logger
	StrictScan bool

	Now   func() time.Time
	NewID func() string

	// guards read-modify-write of the contact list and my profile
	mu sync.Mutex
}

func NewService(store repo.KeyValueStore, gcs *storage.Client, gcsBucket string, logger *logrus.Logger, strictScan bool) *Service {
	return &Service{
		Store:      store,
		GCS:        gcs,
		GCSBucket:  gcsBucket,
		Logger:     logger,
		StrictScan: strictScan,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

// ProfileInput is the profile form. Scanned payloads are checked against the
// same rules when strict scan validation is on.
type ProfileInput struct {
	Name    string `json:"name" validate:"label"`
	Role    string `json:"role" validate:"label"`
	Company string `json:"company" validate:"label"`
	Phone   string `json:"phone" validate:"phone"`
	Email   string `json:"email" validate:"required,email"`
}

func InputFromProfile(p entity.Profile) ProfileInput {
	return ProfileInput{Name: p.Name, Role: p.Role, Company: p.Company, Phone: p.Phone, Email: p.Email}
}

func (s *Service) logError(ctx context.Context, msg string, err error) {
	if s.Logger == nil {
		return
	}
	fields := logrus.Fields{}
	if ns := repo.NamespaceFrom(ctx); ns != "" {
		fields["device"] = ns
	}
	helpers.LogError(s.Logger, msg, err, fields)
}

// GetMyProfile returns nil when no profile is stored or the slot is unreadable.
func (s *Service) GetMyProfile(ctx context.Context) *entity.Profile {
	data, ok, err := s.Store.Get(ctx, repo.SlotKey(ctx, repo.MyProfileSlot))
	if err != nil {
		s.logError(ctx, "error reading my profile", err)
		return nil
	}
	if !ok || data == "" {
		return nil
	}
	var p *entity.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		s.logError(ctx, "error reading my profile", err)
		return nil
	}
	return p
}

// SaveMyProfile overwrites the profile slot. The caller resolves id and createdAt.
func (s *Service) SaveMyProfile(ctx context.Context, p entity.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encode my profile: %w", ErrStorage, err)
	}
	if err := s.Store.Set(ctx, repo.SlotKey(ctx, repo.MyProfileSlot), string(b)); err != nil {
		s.logError(ctx, "error saving my profile", err)
		return fmt.Errorf("%w: save my profile: %w", ErrStorage, err)
	}
	return nil
}

func (s *Service) DeleteMyProfile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Remove(ctx, repo.SlotKey(ctx, repo.MyProfileSlot)); err != nil {
		s.logError(ctx, "error deleting my profile", err)
		return fmt.Errorf("%w: delete my profile: %w", ErrStorage, err)
	}
	return nil
}

// UpsertMyProfile validates the form and saves it in place: an existing
// profile keeps its id and createdAt. The bool reports whether a new
// profile was created.
func (s *Service) UpsertMyProfile(ctx context.Context, in ProfileInput) (*entity.Profile, bool, error) {
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.GetMyProfile(ctx)
	p := entity.Profile{
		Name:    in.Name,
		Role:    in.Role,
		Company: in.Company,
		Phone:   in.Phone,
		Email:   in.Email,
	}
	if existing != nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	if p.ID == "" {
		p.ID = s.NewID()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = entity.FormatTimestamp(s.Now())
	}

	if err := s.SaveMyProfile(ctx, p); err != nil {
		return nil, false, err
	}
	return &p, existing == nil, nil
}

// MyProfilePayload is the QR payload for the stored profile.
func (s *Service) MyProfilePayload(ctx context.Context) (string, error) {
	p := s.GetMyProfile(ctx)
	if p == nil {
		return "", ErrProfileNotFound
	}
	return exchange.Encode(*p)
}
