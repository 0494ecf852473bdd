package domain

import "time"

// RoutePolicy is a deployment-level Rego policy overriding the compiled-in
// route rules.
type RoutePolicy struct {
	ID        string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}
