package exchange

import (
	"fmt"
	"regexp"

	"github.com/avinay/ntc-blueprint/internal/domain/entity"
)

const vcardTemplate = `BEGIN:VCARD
VERSION:3.0
FN:%s
TEL:%s
EMAIL:%s
ORG:%s
TITLE:%s
END:VCARD`

// VCard renders the fixed business-card template.
// Field values are written as-is; callers must not feed it values containing
// line breaks or vCard delimiters.
func VCard(p entity.Profile) string {
	return fmt.Sprintf(vcardTemplate, p.Name, p.Phone, p.Email, p.Company, p.Role)
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileStem turns a display name into a download-friendly stem ("Asha Rao" -> "Asha-Rao").
func FileStem(name string) string {
	return whitespaceRun.ReplaceAllString(name, "-")
}
