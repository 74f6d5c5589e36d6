package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
	"github.com/avinay/ntc-blueprint/internal/domain/exchange"
	repo "github.com/avinay/ntc-blueprint/internal/domain/repository"
	"github.com/avinay/ntc-blueprint/pkg/helpers"
)

// ExportFilename is the download name of a contact export taken at t (UTC date).
func ExportFilename(t time.Time) string {
	return "ntc-contacts-" + t.UTC().Format("2006-01-02") + ".json"
}

// ExportContactsAsJSON renders every contact as a 2-space indented JSON array.
func (s *Service) ExportContactsAsJSON(ctx context.Context) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.GetContacts(ctx)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (s *Service) ExportContactAsVCard(p entity.Profile) string {
	return exchange.VCard(p)
}

// ArchiveContacts uploads the JSON export to GCS under
// exports/<device>/ntc-contacts-YYYY-MM-DD.json and returns its public URL.
func (s *Service) ArchiveContacts(ctx context.Context) (string, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return "", ErrArchiveDisabled
	}
	doc, err := s.ExportContactsAsJSON(ctx)
	if err != nil {
		return "", err
	}

	ns := repo.NamespaceFrom(ctx)
	if ns == "" {
		ns = "shared"
	}
	object := path.Join("exports", ns, ExportFilename(s.Now()))

	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, object, "application/json", strings.NewReader(doc))
	if err != nil {
		s.logError(ctx, "error archiving contacts", err)
		return "", fmt.Errorf("%w: archive contacts: %w", ErrStorage, err)
	}
	return url, nil
}
