// Package email delivers a lead list as a CSV attachment.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/resend"
)

// ErrNoLeads is returned when asked to email an empty list.
var ErrNoLeads = errors.New("No leads to email.") //nolint:staticcheck

// Request is one email delivery.
type Request struct {
	Leads          []model.Lead `json:"leads"`
	ListName       string       `json:"listName"`
	RecipientEmail string       `json:"recipientEmail" validate:"required,email"`
	ResendAPIKey   string       `json:"resendApiKey,omitempty"`
}

var validate = validator.New()

// Validate checks the recipient address.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return eris.Wrap(err, "email: invalid request")
	}
	return nil
}

var bodyTmpl = template.Must(template.New("body").Parse(`<div style="font-family: sans-serif; color: #333;">
  <h2 style="color: #4f46e5;">New Leads Generated</h2>
  <p><strong>{{.Count}}</strong> leads have been generated and saved.</p>
  <p>List: <strong>{{.ListName}}</strong></p>
  <p>The CSV file is attached below.</p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;" />
  <p style="color: #9ca3af; font-size: 12px;">Sent by Lead Scout</p>
</div>`))

// Compose builds the message for req without sending it.
func Compose(from string, req Request) (resend.Email, error) {
	if len(req.Leads) == 0 {
		return resend.Email{}, ErrNoLeads
	}

	csv, err := export.CSV(req.Leads)
	if err != nil {
		return resend.Email{}, err
	}

	var html bytes.Buffer
	if err := bodyTmpl.Execute(&html, struct {
		Count    int
		ListName string
	}{len(req.Leads), req.ListName}); err != nil {
		return resend.Email{}, eris.Wrap(err, "email: render body")
	}

	return resend.Email{
		From:    from,
		To:      []string{req.RecipientEmail},
		Subject: fmt.Sprintf("%d New Leads Generated — %s", len(req.Leads), req.ListName),
		HTML:    html.String(),
		Attachments: []resend.Attachment{{
			Filename: export.Filename(req.ListName, ".csv"),
			Content:  csv,
		}},
	}, nil
}

// Sender resolves credentials and sends through Resend.
type Sender struct {
	from       string
	defaultKey string
	newClient  func(apiKey string) resend.Client
	retry      resilience.RetryConfig
}

// NewSender creates a Sender. newClient builds a client per send so a
// request-supplied key is never shared.
func NewSender(from, defaultKey string, newClient func(apiKey string) resend.Client) *Sender {
	return &Sender{
		from:       from,
		defaultKey: defaultKey,
		newClient:  newClient,
		retry:      resilience.DefaultRetryConfig(),
	}
}

// Send validates req, composes the message and delivers it, retrying
// transient provider failures. It returns the provider's message id.
func (s *Sender) Send(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	key := strings.TrimSpace(req.ResendAPIKey)
	if key == "" {
		key = strings.TrimSpace(s.defaultKey)
	}
	if key == "" {
		return "", resilience.NewConfigError("RESEND_API_KEY", "")
	}

	msg, err := Compose(s.from, req)
	if err != nil {
		return "", err
	}

	client := s.newClient(key)
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("resend", "send")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*resend.SendResponse, error) {
		return client.Send(ctx, msg)
	})
	if err != nil {
		return "", eris.Wrap(err, "email: send")
	}

	zap.L().Info("email: leads sent",
		zap.String("id", resp.ID),
		zap.String("list", req.ListName),
		zap.Int("leads", len(req.Leads)),
	)
	return resp.ID, nil
}
