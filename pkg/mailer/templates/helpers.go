package templates

import (
	"strings"
	"time"

	"github.com/avinay/ntc-blueprint/config"
)

// Option pattern
type Option func(*CardData)

func WithTime(t time.Time) Option {
	return func(d *CardData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithMessage(msg string) Option {
	return func(d *CardData) {
		if s := strings.TrimSpace(msg); s != "" {
			d.Message = s
		}
	}
}

// NewCardData fills the event fields from config, then applies opts.
func NewCardData(cfg *config.Config, name, role, company, phone, email, recipient string, opts ...Option) CardData {
	d := CardData{
		Name:           name,
		Role:           role,
		Company:        company,
		Phone:          phone,
		Email:          email,
		RecipientEmail: recipient,
	}
	if cfg != nil {
		d.AppName = cfg.AppName
		d.EventName = cfg.EventName
		d.SupportURL = cfg.SupportURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewContactCardData(cfg *config.Config, name, role, company, phone, email, recipient string, opts ...Option) map[string]any {
	return ToMap(NewCardData(cfg, name, role, company, phone, email, recipient, opts...))
}
