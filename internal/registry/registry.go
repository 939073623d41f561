// Package registry looks up companies in the external company registry.
//
// The registry is advisory: the merge coordinator uses it to validate a
// master record's name before merging, but a registry outage never blocks
// resolution, only merge validation quality.
package registry

import (
	"context"
	"errors"
)

// ErrNotFound reports that the registry has no company under the given
// registration number.
var ErrNotFound = errors.New("registry: company not found")

// CompanyRecord is the registry's view of a company.
type CompanyRecord struct {
	RegistrationNumber string `json:"registration_number"`
	Name               string `json:"name"`
	Status             string `json:"status,omitempty"`
	Address            string `json:"address,omitempty"`
	Town               string `json:"town,omitempty"`
	County             string `json:"county,omitempty"`
	Postcode           string `json:"postcode,omitempty"`
}

// Client is the company-registry port.
type Client interface {
	// Lookup fetches the company registered under the given number.
	// ErrNotFound when absent; any other error is a transport failure.
	Lookup(ctx context.Context, registrationNumber string) (*CompanyRecord, error)
}
