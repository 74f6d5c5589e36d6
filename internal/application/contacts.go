package application

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/pkg/validation"
)

// ContactPatch holds the fields of a partial contact update; nil means unchanged.
// The id is not patchable.
type ContactPatch struct {
	Name      *string `json:"name,omitempty"`
	Role      *string `json:"role,omitempty"`
	Company   *string `json:"company,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	CreatedAt *string `json:"createdAt,omitempty"`
	ScannedAt *string `json:"scannedAt,omitempty"`
}

func (p ContactPatch) apply(c entity.Profile) entity.Profile {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.Name, p.Name)
	set(&c.Role, p.Role)
	set(&c.Company, p.Company)
	set(&c.Phone, p.Phone)
	set(&c.Email, p.Email)
	set(&c.CreatedAt, p.CreatedAt)
	set(&c.ScannedAt, p.ScannedAt)
	return c
}

// loadContacts reads the contact slot. Corrupt data is logged and read as an
// empty list; a failing store is an error so writers never clobber the slot.
func (s *Service) loadContacts(ctx context.Context) ([]entity.Profile, error) {
	data, ok, err := s.Store.Get(ctx, repo.SlotKey(ctx, repo.ContactsSlot))
	if err != nil {
		s.logError(ctx, "error reading contacts", err)
		return nil, fmt.Errorf("%w: read contacts: %w", ErrStorage, err)
	}
	if !ok || data == "" {
		return []entity.Profile{}, nil
	}
	var contacts []entity.Profile
	if err := json.Unmarshal([]byte(data), &contacts); err != nil {
		s.logError(ctx, "error reading contacts", err)
		return []entity.Profile{}, nil
	}
	if contacts == nil {
		contacts = []entity.Profile{}
	}
	return contacts, nil
}

func (s *Service) storeContacts(ctx context.Context, contacts []entity.Profile) error {
	b, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("%w: encode contacts: %w", ErrStorage, err)
	}
	if err := s.Store.Set(ctx, repo.SlotKey(ctx, repo.ContactsSlot), string(b)); err != nil {
		s.logError(ctx, "error saving contacts", err)
		return fmt.Errorf("%w: save contacts: %w", ErrStorage, err)
	}
	return nil
}

// GetContacts returns the stored contacts in insertion order, never nil.
func (s *Service) GetContacts(ctx context.Context) []entity.Profile {
	contacts, err := s.loadContacts(ctx)
	if err != nil {
		return []entity.Profile{}
	}
	return contacts
}

func (s *Service) GetContact(ctx context.Context, id string) (*entity.Profile, error) {
	for _, c := range s.GetContacts(ctx) {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, ErrContactNotFound
}

// SaveContact appends c unless a contact with the same email (any case) exists.
func (s *Service) SaveContact(ctx context.Context, c entity.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContacts(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(contacts, c.SameEmail) {
		return ErrDuplicateContact
	}
	return s.storeContacts(ctx, append(contacts, c))
}

// ScanContact turns a decoded QR payload into a saved contact stamped with
// the scan time.
func (s *Service) ScanContact(ctx context.Context, payload string) (*entity.Profile, error) {
	p, err := exchange.Decode(payload)
	if err != nil {
		return nil, err
	}
	if s.StrictScan {
		if err := validation.Struct(InputFromProfile(p)); err != nil {
			return nil, err
		}
	}
	p.ScannedAt = entity.FormatTimestamp(s.Now())
	if err := s.SaveContact(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteContact removes the contact with id. A missing id is not an error.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContacts(ctx)
	if err != nil {
		return err
	}
	contacts = slices.DeleteFunc(contacts, func(c entity.Profile) bool { return c.ID == id })
	return s.storeContacts(ctx, contacts)
}

func (s *Service) ClearContacts(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Remove(ctx, repo.SlotKey(ctx, repo.ContactsSlot)); err != nil {
		s.logError(ctx, "error clearing contacts", err)
		return fmt.Errorf("%w: clear contacts: %w", ErrStorage, err)
	}
	return nil
}

// UpdateContact merges patch onto the contact with id.
func (s *Service) UpdateContact(ctx context.Context, id string, patch ContactPatch) (*entity.Profile, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContacts(ctx)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(contacts, func(c entity.Profile) bool { return c.ID == id })
	if idx < 0 {
		return nil, ErrContactNotFound
	}
	updated := patch.apply(contacts[idx])
	if patch.Email != nil {
		for i, c := range contacts {
			if i != idx && c.SameEmail(updated) {
				return nil, ErrDuplicateContact
			}
		}
	}
	contacts[idx] = updated
	if err := s.storeContacts(ctx, contacts); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetNetworkingStats counts contacts, contacts scanned in the last seven
// days, and distinct companies (case-insensitive).
func (s *Service) GetNetworkingStats(ctx context.Context) entity.NetworkingStats {
	contacts := s.GetContacts(ctx)
	cutoff := s.Now().AddDate(0, 0, -7)

	recent := 0
	companies := make(map[string]struct{}, len(contacts))
	for _, c := range contacts {
		companies[strings.ToLower(c.Company)] = struct{}{}
		if c.ScannedAt == "" {
			continue
		}
		if t, err := entity.ParseTimestamp(c.ScannedAt); err == nil && !t.Before(cutoff) {
			recent++
		}
	}
	return entity.NetworkingStats{
		TotalContacts:        len(contacts),
		RecentScans:          recent,
		CompaniesRepresented: len(companies),
	}
}

// SearchContacts matches query against name, company, role and email,
// ignoring case. A blank query returns every contact.
func (s *Service) SearchContacts(ctx context.Context, query string) []entity.Profile {
	contacts := s.GetContacts(ctx)
	if strings.TrimSpace(query) == "" {
		return contacts
	}
	q := strings.ToLower(query)
	out := make([]entity.Profile, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Company), q) ||
			strings.Contains(strings.ToLower(c.Role), q) ||
			strings.Contains(strings.ToLower(c.Email), q) {
			out = append(out, c)
		}
	}
	return out
}

// SortContacts returns a sorted copy of list. Names and companies use English
// collation; date puts the most recent scan (or creation) first. Unknown
// criteria return an unsorted copy.
func SortContacts(list []entity.Profile, by entity.SortCriterion) []entity.Profile {
	sorted := make([]entity.Profile, len(list))
	copy(sorted, list)

	switch by {
	case entity.SortByName, entity.SortByCompany:
		col := collate.New(language.English)
		key := func(p entity.Profile) string {
			if by == entity.SortByCompany {
				return p.Company
			}
			return p.Name
		}
		slices.SortStableFunc(sorted, func(a, b entity.Profile) int {
			return col.CompareString(key(a), key(b))
		})
	case entity.SortByDate:
		slices.SortStableFunc(sorted, func(a, b entity.Profile) int {
			return b.ActivityTime().Compare(a.ActivityTime())
		})
	}
	return sorted
}
