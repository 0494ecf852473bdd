// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the demo admin profile already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	analysisdomain "rank-lens/gateway/internal/analysis/domain"
	analysisrepo "rank-lens/gateway/internal/analysis/repository"
	"rank-lens/gateway/internal/config"
	"rank-lens/gateway/internal/db"
	gkdomain "rank-lens/gateway/internal/gatekeeper/domain"
	gkrepo "rank-lens/gateway/internal/gatekeeper/repository"
	orgdomain "rank-lens/gateway/internal/organization/domain"
	orgrepo "rank-lens/gateway/internal/organization/repository"
	profiledomain "rank-lens/gateway/internal/profile/domain"
	profilerepo "rank-lens/gateway/internal/profile/repository"
)

// defaultRoutePolicy matches the compiled-in policy in
// internal/gatekeeper/engine/opa_evaluator.go so the seeded row is a
// starting point for edits rather than a behavior change.
const defaultRoutePolicy = `package ranklens.routes

default requires_auth = false
default requires_admin = false
default funnel_exempt = false

protected := {"/home", "/organization-setup", "/domain-setup", "/admin"}

exempt := {"/", "/login", "/signup", "/demo", "/analysis", "/organization-setup", "/domain-setup"}

requires_auth if {
	input.route in protected
}

requires_admin if {
	input.route == "/admin"
}

funnel_exempt if {
	input.route in exempt
}
`

const (
	demoOrgID      = "demo-org-001"
	demoAdminID    = "demo-admin-001"
	demoClientID   = "demo-client-001"
	demoAnalysisID = "demo-analysis-001"
	demoPolicyID   = "demo-policy-001"
	demoWebsiteURL = "https://www.example.com/"
	demoDomain     = "example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	profiles := profilerepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	analyses := analysisrepo.NewPostgresRepository(conn)
	policies := gkrepo.NewPostgresRepository(conn)

	existing, err := profiles.GetByID(ctx, demoAdminID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (demo admin exists). Skipping.")
		os.Exit(0)
	}

	now := time.Now().UTC()
	websiteURL := demoWebsiteURL
	orgID := demoOrgID

	if err := orgs.Create(ctx, &orgdomain.Org{
		ID:         demoOrgID,
		Name:       "Demo Organization",
		Slug:       "demo-organization",
		WebsiteURL: &websiteURL,
		CreatedAt:  now,
	}); err != nil {
		log.Fatalf("create demo org: %v", err)
	}

	if err := profiles.Create(ctx, &profiledomain.Profile{
		ID:             demoAdminID,
		Email:          "admin@example.com",
		FullName:       "Demo Admin",
		Role:           profiledomain.RoleAdmin,
		OrganizationID: &orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		log.Fatalf("create demo admin: %v", err)
	}

	if err := profiles.Create(ctx, &profiledomain.Profile{
		ID:             demoClientID,
		Email:          "client@example.com",
		FullName:       "Demo Client",
		Role:           profiledomain.RoleClient,
		OrganizationID: &orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		log.Fatalf("create demo client: %v", err)
	}

	if err := analyses.Create(ctx, &analysisdomain.Record{
		ID:        demoAnalysisID,
		Domain:    demoDomain,
		Status:    analysisdomain.StatusCompleted,
		Payload:   []byte(`{"score": 72, "pages_crawled": 48}`),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create demo analysis: %v", err)
	}

	if err := policies.Create(ctx, &gkdomain.RoutePolicy{
		ID:        demoPolicyID,
		Rules:     defaultRoutePolicy,
		Enabled:   false,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create route policy: %v", err)
	}

	log.Println("Seed applied: demo org, admin/client profiles, completed analysis, route policy template.")
}
