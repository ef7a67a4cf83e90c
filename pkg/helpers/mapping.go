package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/healthcare-identity/pkg/mailer"
	mailtpl "github.com/oksasatya/healthcare-identity/pkg/mailer/templates"
)

// EnsureRecipientAndEmail backfills the address fields templates rely on
func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// MapTypeToUniversal routes jobs that name an email type directly onto the
// universal template set.
func MapTypeToUniversal(job *mailer.EmailJob) {
	switch strings.ToLower(job.Template) {
	case mailtpl.VerifyOTP, mailtpl.ResetOTP, mailtpl.Welcome:
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		if v, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data["Type"] = strings.ToLower(job.Template)
		}
		job.Template = mailtpl.Universal
	}
}
