package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nahidhasan98/commit-notifier/internal/errors"
	"github.com/nahidhasan98/commit-notifier/internal/models"
)

// WhatsApp JID patterns
var (
	// Individual JID pattern: number@s.whatsapp.net
	individualJIDPattern = regexp.MustCompile(`^\d{10,15}@s\.whatsapp\.net$`)

	// Group JID pattern: groupid@g.us
	groupJIDPattern = regexp.MustCompile(`^\d+(-\d+)?@g\.us$`)
)

// Validator validates admin requests and sink addresses
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateResendRequest checks a resend request and normalises its id
func (v *Validator) ValidateResendRequest(req *models.ResendRequest) *errors.AppError {
	if req == nil {
		return errors.InvalidRequest("Request body is required")
	}

	req.ID = NormalizeCommitID(req.ID)

	if err := v.validate.Struct(req); err != nil {
		return errors.ValidationError(describe(err))
	}

	return nil
}

// NormalizeCommitID trims whitespace and surrounding quotes, so that
// `"12345"` and `12345` name the same commit
func NormalizeCommitID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"' {
		id = strings.TrimSpace(id[1 : len(id)-1])
	}
	return id
}

// IsValidJID checks if a JID is a WhatsApp user or group address
func (v *Validator) IsValidJID(jid string) bool {
	jid = strings.TrimSpace(jid)
	return individualJIDPattern.MatchString(jid) || groupJIDPattern.MatchString(jid)
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' field is required", field)
	case "max":
		return fmt.Sprintf("'%s' is too long (maximum %s characters)", field, fe.Param())
	case "printascii":
		return fmt.Sprintf("'%s' must contain printable ASCII characters only", field)
	default:
		return fmt.Sprintf("'%s' failed the %s check", field, fe.Tag())
	}
}
