package helpers

import (
	"fmt"
	"strings"

	"github.com/avinay/ntc-blueprint/pkg/mailer"
	mailtpl "github.com/avinay/ntc-blueprint/pkg/mailer/templates"
)

// EnsureRecipientAndEmail fills RecipientEmail from the job target when the producer left it empty.
func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// MapLegacyTemplate maps older template names onto the ones shipped today.
func MapLegacyTemplate(job *mailer.EmailJob) {
	switch strings.ToLower(job.Template) {
	case "share_card", "vcard", "contact":
		job.Template = mailtpl.ContactCard
	}
}
