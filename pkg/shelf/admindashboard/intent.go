package admindashboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
)

// Intent selects which mutation an admin dashboard form performs
type Intent string

const (
	IntentCreateOrphans    Intent = "createOrphans"
	IntentToggleSso        Intent = "toggleSso"
	IntentUpdateSsoDetails Intent = "updateSsoDetails"
)

// Intents lists every intent the dispatcher handles. Dispatch must cover each of them.
var Intents = []Intent{IntentCreateOrphans, IntentToggleSso, IntentUpdateSsoDetails}

// Action is a decoded admin dashboard form. Each intent has its own payload type.
type Action interface {
	Intent() Intent
}

// CreateOrphans generates Amount orphaned QR codes owned by UserID.
type CreateOrphans struct {
	Amount int
	UserID string
}

// ToggleSso switches SSO on or off.
type ToggleSso struct {
	Enabled bool
}

// UpdateSsoDetails replaces the SSO settings.
type UpdateSsoDetails struct {
	Domain             string
	AdminGroupID       string
	SelfServiceGroupID string
}

func (CreateOrphans) Intent() Intent    { return IntentCreateOrphans }
func (ToggleSso) Intent() Intent        { return IntentToggleSso }
func (UpdateSsoDetails) Intent() Intent { return IntentUpdateSsoDetails }

var validate = validator.New()

// ParseAction decodes form into the Action named by its intent field. maxOrphans bounds the
// number of QR codes a single createOrphans request may generate.
func ParseAction(form url.Values, maxOrphans int) (Action, error) {
	intent := Intent(form.Get("intent"))
	if !validIntent(intent) {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Invalid intent", shelferr.AdditionalData{"intent": string(intent)})
	}

	switch intent {
	case IntentCreateOrphans:
		return parseCreateOrphans(form, maxOrphans)
	case IntentToggleSso:
		return ToggleSso{Enabled: form.Get("enabledSso") == "on"}, nil
	case IntentUpdateSsoDetails:
		return parseUpdateSsoDetails(form)
	}
	return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Invalid intent", shelferr.AdditionalData{"intent": string(intent)})
}

func validIntent(intent Intent) bool {
	for _, i := range Intents {
		if i == intent {
			return true
		}
	}
	return false
}

func parseCreateOrphans(form url.Values, maxOrphans int) (Action, error) {
	rawAmount := strings.TrimSpace(form.Get("amount"))
	userID := strings.TrimSpace(form.Get("userId"))

	if rawAmount == "" {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Amount is required", nil)
	}
	amount, err := strconv.Atoi(rawAmount)
	if err != nil {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Amount must be a number", shelferr.AdditionalData{"amount": rawAmount})
	}
	if amount < 1 || amount > maxOrphans {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard,
			"Amount must be between 1 and "+strconv.Itoa(maxOrphans), shelferr.AdditionalData{"amount": amount})
	}
	if userID == "" {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Please select an owner for the QR codes", nil)
	}

	return CreateOrphans{Amount: amount, UserID: userID}, nil
}

func parseUpdateSsoDetails(form url.Values) (Action, error) {
	action := UpdateSsoDetails{
		Domain:             strings.ToLower(strings.TrimSpace(form.Get("domain"))),
		AdminGroupID:       strings.TrimSpace(form.Get("adminGroupId")),
		SelfServiceGroupID: strings.TrimSpace(form.Get("selfServiceGroupId")),
	}

	if action.AdminGroupID == "" || action.SelfServiceGroupID == "" {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Admin and self service group ids are required", nil)
	}
	if err := validate.Var(action.Domain, "required,fqdn"); err != nil {
		return nil, shelferr.Validation(shelferr.LabelAdminDashboard, "Please enter a valid domain name", shelferr.AdditionalData{"domain": action.Domain})
	}

	return action, nil
}
