package main

import (
	"context"
	"crypto"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rank-lens/gateway/internal/analysis"
	anengine "rank-lens/gateway/internal/analysis/engine"
	analysishandler "rank-lens/gateway/internal/analysis/handler"
	analysisrepo "rank-lens/gateway/internal/analysis/repository"
	"rank-lens/gateway/internal/config"
	"rank-lens/gateway/internal/db"
	"rank-lens/gateway/internal/flags"
	"rank-lens/gateway/internal/gatekeeper"
	gkengine "rank-lens/gateway/internal/gatekeeper/engine"
	gatekeeperhandler "rank-lens/gateway/internal/gatekeeper/handler"
	gkrepo "rank-lens/gateway/internal/gatekeeper/repository"
	"rank-lens/gateway/internal/identity"
	"rank-lens/gateway/internal/identity/devidp"
	"rank-lens/gateway/internal/identity/httpidp"
	orgrepo "rank-lens/gateway/internal/organization/repository"
	"rank-lens/gateway/internal/organization/resolver"
	profilehandler "rank-lens/gateway/internal/profile/handler"
	profilerepo "rank-lens/gateway/internal/profile/repository"
	"rank-lens/gateway/internal/runtime"
	"rank-lens/gateway/internal/security"
	"rank-lens/gateway/internal/server"
	"rank-lens/gateway/internal/session"
	sessionhandler "rank-lens/gateway/internal/session/handler"
	"rank-lens/gateway/internal/telemetry"
	telemetryotel "rank-lens/gateway/internal/telemetry/otel"
	"rank-lens/gateway/internal/telemetry/producer"
)

const serviceName = "ranklens-gateway"

// flagsTTL bounds how long abandoned onboarding hints survive in Redis.
const flagsTTL = 7 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	flagStore := newFlagStore(ctx, cfg)

	tokens, err := newTokenProvider(cfg)
	if err != nil {
		log.Fatalf("security: %v", err)
	}

	profileRepo := profilerepo.NewPostgresRepository(conn)
	orgRepo := orgrepo.NewPostgresRepository(conn)
	analysisRepo := analysisrepo.NewPostgresRepository(conn)
	policyRepo := gkrepo.NewPostgresRepository(conn)

	eval := gkengine.NewOPAEvaluator(policyRepo)
	fetcher := anengine.NewRepositoryFetcher(analysisRepo)
	submitter := anengine.NewHTTPSubmitter(cfg.AnalysisTriggerURL, cfg.AnalysisAPIKey)

	emitters := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	if kafkaProducer != nil {
		defer kafkaProducer.Close()
		emitters = append(emitters, kafkaProducer)
	}

	var providerFor func(token string) identity.Provider
	var devSignIn *devidp.SignInHandler
	if cfg.IdentityProviderURL != "" {
		idp := httpidp.NewClient(cfg.IdentityProviderURL)
		providerFor = idp.ProviderFor
	} else {
		dir := devidp.NewDirectory(security.NewHasher(cfg.BcryptCost), tokens)
		providerFor = dir.ProviderFor
		if cfg.DevSignInEnabled {
			devSignIn = devidp.NewSignInHandler(dir)
			// User ids line up with the profiles cmd/seed inserts.
			for id, email := range map[string]string{
				"demo-admin-001":  "admin@example.com",
				"demo-client-001": "client@example.com",
			} {
				if err := dir.Register(id, email, "password123"); err != nil {
					log.Fatalf("devidp: %v", err)
				}
			}
		}
	}

	runtimes := runtime.NewManager(func(ctx context.Context, token string) (*runtime.Runtime, error) {
		store := session.New(providerFor(token), profileRepo)
		store.Start(ctx)
		res := resolver.New(orgRepo)
		return &runtime.Runtime{
			Sessions:   store,
			Resolver:   res,
			Analysis:   analysis.NewClient(fetcher, analysis.Options{}),
			Gatekeeper: gatekeeper.New(store, res, eval, flagStore, emitters),
		}, nil
	}, cfg.RuntimeTTLDuration())
	defer runtimes.Close()

	e := server.New(server.Deps{
		ServiceName:  serviceName,
		Validator:    tokens,
		DB:           conn,
		Decision:     gatekeeperhandler.New(runtimes, eval),
		Session:      sessionhandler.New(runtimes, emitters),
		Analysis:     analysishandler.New(runtimes, submitter, emitters),
		Profile:      profilehandler.New(profileRepo),
		Profiles:     profileRepo,
		PolicyHealth: eval.HealthCheck,
		DevSignIn:    devSignIn,
	})

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry drain before the providers go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelDrain()
	if err := providers.Shutdown(drainCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}

// newFlagStore picks Redis when configured, the in-memory store otherwise.
// A Redis connection failure degrades to memory: the flags are best-effort
// hints, never worth refusing to boot over.
func newFlagStore(ctx context.Context, cfg *config.Config) flags.Store {
	if cfg.RedisURL == "" {
		return flags.NewMemoryStore()
	}
	store, err := flags.NewRedisStore(ctx, cfg.RedisURL, flagsTTL)
	if err != nil {
		log.Printf("flags: redis unavailable, using in-memory store: %v", err)
		return flags.NewMemoryStore()
	}
	return store
}

// newTokenProvider builds the session token provider from configured PEM keys,
// falling back to an ephemeral dev key pair when none are set outside
// production.
func newTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		signer crypto.Signer
		pub    crypto.PublicKey
		err    error
	)
	switch {
	case cfg.JWTPrivateKey != "":
		signer, err = security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, err
		}
		pub = signer.Public()
		if cfg.JWTPublicKey != "" {
			pub, err = security.ParsePublicKey(cfg.JWTPublicKey)
			if err != nil {
				return nil, err
			}
		}
	case cfg.JWTPublicKey != "":
		// Validate-only: tokens are issued elsewhere.
		pub, err = security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
	case cfg.Env != "production":
		log.Println("security: no JWT keys configured, generating ephemeral dev key pair")
		signer, pub, err = security.GenerateDevKeyPair()
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("JWT_PRIVATE_KEY or JWT_PUBLIC_KEY must be set in production")
	}
	return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTTLDuration()), nil
}
