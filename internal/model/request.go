package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
)

// Target count bounds for a single run.
const (
	MinResults     = 5
	MaxResults     = 25
	DefaultResults = 10
)

// GenerateRequest is the input to one generation run. Every credential is an
// optional override of the configured default.
type GenerateRequest struct {
	ExaAPIKey     string   `json:"exaApiKey,omitempty"`
	GeminiAPIKey  string   `json:"geminiApiKey,omitempty"`
	AnthropicKey  string   `json:"anthropicApiKey,omitempty"`
	ReferenceURLs []string `json:"referenceUrls,omitempty" validate:"omitempty,max=20,dive,url"`
	DatabaseURL   string   `json:"databaseUrl,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty" validate:"omitempty,min=5,max=25"`
}

// Target returns the requested lead count, applying the default when unset.
func (r GenerateRequest) Target(def int) int {
	if r.MaxResults == 0 {
		if def == 0 {
			return DefaultResults
		}
		return def
	}
	return r.MaxResults
}

var validate = validator.New()

// Validate checks the request against its field constraints.
func (r GenerateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return eris.Errorf("invalid request: %s failed %q (param %q)", fe.Field(), fe.Tag(), fe.Param())
		}
		return eris.Wrap(err, "invalid request")
	}
	return nil
}
