package domain

import (
	"errors"
	"time"
)

// Org represents a customer organization. WebsiteURL is nil until the owner
// completes domain setup.
type Org struct {
	ID         string
	Name       string
	Slug       string
	WebsiteURL *string
	CreatedAt  time.Time
}

// HasWebsiteURL reports whether a non-empty website URL is configured.
func (o *Org) HasWebsiteURL() bool {
	return o != nil && o.WebsiteURL != nil && *o.WebsiteURL != ""
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.ID == "" {
		return errors.New("id is required")
	}
	if o.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
