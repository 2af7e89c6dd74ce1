// Package admindashboard serves the organization admin dashboard: the organization view and
// the form actions that generate orphaned QR codes and manage SSO.
package admindashboard

import (
	"context"
	"errors"
	"net/url"

	"github.com/mikepea/shelf/pkg/shelf/metrics"
	"github.com/mikepea/shelf/pkg/shelf/models"
	"github.com/mikepea/shelf/pkg/shelf/organizations"
	"github.com/mikepea/shelf/pkg/shelf/shelferr"
	"gorm.io/gorm"
)

// Success messages returned by each action
const (
	MessageGeneratedOrphans = "Generated Orphaned QR codes"
	MessageSsoToggled       = "SSO toggled"
	MessageSsoUpdated       = "SSO details updated"
)

// RequestContext identifies who is acting on which organization.
type RequestContext struct {
	UserID         string
	OrganizationID string
}

func (rc RequestContext) data() shelferr.AdditionalData {
	return shelferr.AdditionalData{"userId": rc.UserID, "organizationId": rc.OrganizationID}
}

// Result is the body of a successful action
type Result struct {
	Message string `json:"message"`
}

// Gate checks that the acting user is an administrator
type Gate interface {
	RequireAdmin(ctx context.Context, userID string) error
}

// OrganizationStore is the organization storage the dispatcher mutates
type OrganizationStore interface {
	Exists(ctx context.Context, id string) error
	GetWithDetails(ctx context.Context, id string) (*models.Organization, error)
	ToggleSso(ctx context.Context, id string, enabled bool) error
	UpsertSsoDetails(ctx context.Context, organizationID string, settings organizations.SsoSettings) (*models.SsoDetails, error)
}

// QrGenerator creates orphaned QR codes
type QrGenerator interface {
	GenerateOrphanedCodes(ctx context.Context, organizationID, userID string, amount int) ([]models.QrCode, error)
}

// Dispatcher authorizes, decodes and applies admin dashboard requests. Every error it
// returns is a *shelferr.Error labelled for the admin dashboard.
type Dispatcher struct {
	gate       Gate
	orgs       OrganizationStore
	qr         QrGenerator
	maxOrphans int
}

// NewDispatcher creates a dispatcher. maxOrphans bounds a single createOrphans request.
func NewDispatcher(gate Gate, orgs OrganizationStore, qr QrGenerator, maxOrphans int) *Dispatcher {
	return &Dispatcher{gate: gate, orgs: orgs, qr: qr, maxOrphans: maxOrphans}
}

// Load returns the organization with its QR codes, owner and SSO details.
func (d *Dispatcher) Load(ctx context.Context, rc RequestContext) (*models.Organization, error) {
	if err := d.gate.RequireAdmin(ctx, rc.UserID); err != nil {
		return nil, d.normalize(err, rc)
	}

	org, err := d.orgs.GetWithDetails(ctx, rc.OrganizationID)
	if err != nil {
		return nil, d.normalize(err, rc)
	}
	return org, nil
}

// Act applies the action described by form to the organization.
func (d *Dispatcher) Act(ctx context.Context, rc RequestContext, form url.Values) (*Result, error) {
	intent := form.Get("intent")

	if err := d.gate.RequireAdmin(ctx, rc.UserID); err != nil {
		return nil, d.fail(intent, err, rc)
	}

	action, err := ParseAction(form, d.maxOrphans)
	if err != nil {
		return nil, d.fail(intent, err, rc)
	}

	var message string
	switch a := action.(type) {
	case CreateOrphans:
		err = d.createOrphans(ctx, rc, a)
		message = MessageGeneratedOrphans
	case ToggleSso:
		err = d.orgs.ToggleSso(ctx, rc.OrganizationID, a.Enabled)
		message = MessageSsoToggled
	case UpdateSsoDetails:
		_, err = d.orgs.UpsertSsoDetails(ctx, rc.OrganizationID, organizations.SsoSettings{
			Domain:             a.Domain,
			AdminGroupID:       a.AdminGroupID,
			SelfServiceGroupID: a.SelfServiceGroupID,
		})
		message = MessageSsoUpdated
	default:
		err = shelferr.New(shelferr.Options{
			Kind:           shelferr.KindInternal,
			Title:          "Invalid intent",
			Message:        "Invalid intent",
			AdditionalData: shelferr.AdditionalData{"intent": intent},
		})
	}
	if err != nil {
		return nil, d.fail(intent, err, rc)
	}

	metrics.AdminActions.WithLabelValues(intent, metrics.OutcomeSuccess).Inc()
	return &Result{Message: message}, nil
}

func (d *Dispatcher) createOrphans(ctx context.Context, rc RequestContext, a CreateOrphans) error {
	// Codes for a missing organization would never be reachable.
	if err := d.orgs.Exists(ctx, rc.OrganizationID); err != nil {
		return err
	}
	_, err := d.qr.GenerateOrphanedCodes(ctx, rc.OrganizationID, a.UserID, a.Amount)
	return err
}

func (d *Dispatcher) fail(intent string, err error, rc RequestContext) error {
	reason := d.normalize(err, rc)

	outcome := metrics.OutcomeFailure
	if reason.Kind == shelferr.KindUnauthorized || reason.Kind == shelferr.KindForbidden {
		outcome = metrics.OutcomeDenied
	}
	if !validIntent(Intent(intent)) {
		intent = "invalid"
	}
	metrics.AdminActions.WithLabelValues(intent, outcome).Inc()
	return reason
}

// normalize converts any failure into an admin dashboard error carrying the request context.
func (d *Dispatcher) normalize(err error, rc RequestContext) *shelferr.Error {
	var reason *shelferr.Error
	switch {
	case errors.As(err, &reason):
	case errors.Is(err, gorm.ErrRecordNotFound):
		reason = shelferr.NotFound(shelferr.LabelAdminDashboard, "Organization not found",
			"The organization you are trying to access does not exist or you do not have permission to access it.", err, nil)
	default:
		reason = shelferr.Dependency(shelferr.LabelAdminDashboard, "", err, nil)
	}
	return reason.With(rc.data()).WithLabel(shelferr.LabelAdminDashboard)
}
