package httpapi

import (
	"github.com/gorilla/mux"

	"afr/internal/auditlog"
	"afr/internal/auth"
	"afr/internal/middleware"
	"afr/internal/mirror"
	"afr/internal/ratelimit"
	"afr/internal/transparency"
	"afr/internal/zkproof"
	"afr/pkg/config"
	"afr/pkg/logger"
)

// Dependencies bundles every service the router needs to wire
// handlers against.
type Dependencies struct {
	Audit           *auditlog.Service
	Transparency    *transparency.Service
	ZK              *zkproof.Service
	Auth            *auth.Service
	Mirror          *mirror.Service
	RegisterLimiter ratelimit.Limiter
	Anon            config.AnonConfig
	Logger          logger.Logger
}

// NewRouter assembles the full HTTP surface: public routes mounted
// directly, role-gated routes behind AuthMiddleware plus RequireRole.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.Recovery)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(deps.Logger).Log)

	auditHandler := NewAuditHandler(deps.Audit, deps.Logger)
	transparencyHandler := NewTransparencyHandler(deps.Transparency, deps.Anon, deps.Logger)
	complianceHandler := NewComplianceHandler(deps.Transparency, deps.Logger)
	zkHandler := NewZKHandler(deps.ZK, deps.Logger)
	authHandler := NewAuthHandler(deps.Auth, deps.RegisterLimiter, deps.Logger)
	mirrorHandler := NewMirrorHandler(deps.Mirror, deps.Logger)

	authMW := middleware.NewAuthMiddleware(deps.Auth)
	registerLimitMW := middleware.NewRateLimitMiddleware(deps.RegisterLimiter)

	// Public audit endpoints.
	r.HandleFunc("/health", auditHandler.Health).Methods("GET")
	r.HandleFunc("/events", auditHandler.AppendEvent).Methods("POST")
	r.HandleFunc("/events", auditHandler.ListEvents).Methods("GET")
	r.HandleFunc("/events/{id}", auditHandler.GetEvent).Methods("GET")
	r.HandleFunc("/status", auditHandler.Status).Methods("GET")
	r.HandleFunc("/verify", auditHandler.Verify).Methods("GET")
	r.HandleFunc("/proof/{id}", auditHandler.Proof).Methods("GET")
	r.HandleFunc("/proof/verify", auditHandler.VerifyProof).Methods("POST")
	r.HandleFunc("/demo/reset", auditHandler.DemoReset).Methods("POST")
	r.HandleFunc("/demo/populate", auditHandler.DemoPopulate).Methods("POST")
	r.HandleFunc("/demo/tamper", auditHandler.DemoTamper).Methods("POST")

	// Transparency endpoints — concerns are publicly raised and read;
	// resolution is restricted to auditors.
	r.HandleFunc("/transparency/anonymous-id", transparencyHandler.AnonymousID).Methods("POST")
	r.HandleFunc("/transparency/concerns", transparencyHandler.RaiseConcern).Methods("POST")
	r.HandleFunc("/transparency/concerns", transparencyHandler.ListConcerns).Methods("GET")
	r.HandleFunc("/transparency/concerns/{id}", transparencyHandler.GetConcern).Methods("GET")
	r.HandleFunc("/transparency/responses", transparencyHandler.Respond).Methods("POST")
	r.HandleFunc("/transparency/concerns/{id}/dispute", transparencyHandler.Dispute).Methods("POST")
	r.HandleFunc("/transparency/stats", transparencyHandler.Stats).Methods("GET")

	transparencyAuditorOnly := r.PathPrefix("/transparency").Subrouter()
	transparencyAuditorOnly.Use(authMW.Authenticate)
	transparencyAuditorOnly.Use(middleware.RequireRole(auth.RoleAuditor))
	transparencyAuditorOnly.HandleFunc("/resolutions", transparencyHandler.Resolve).Methods("POST")

	// Compliance endpoints — reads and template listing are public;
	// submission is restricted to labs, review to auditors.
	r.HandleFunc("/compliance/status/{deployment_id}", complianceHandler.DeploymentStatus).Methods("GET")
	r.HandleFunc("/compliance/templates", complianceHandler.Templates).Methods("GET")
	r.HandleFunc("/compliance/submissions", complianceHandler.List).Methods("GET")
	r.HandleFunc("/compliance/submissions/{id}", complianceHandler.Get).Methods("GET")
	r.HandleFunc("/demo/compliance-populate", complianceHandler.DemoPopulate).Methods("POST")

	complianceLab := r.PathPrefix("/compliance").Subrouter()
	complianceLab.Use(authMW.Authenticate)
	complianceLab.Use(middleware.RequireRole(auth.RoleLab))
	complianceLab.HandleFunc("/submissions", complianceHandler.Submit).Methods("POST")

	complianceAuditor := r.PathPrefix("/compliance").Subrouter()
	complianceAuditor.Use(authMW.Authenticate)
	complianceAuditor.Use(middleware.RequireRole(auth.RoleAuditor))
	complianceAuditor.HandleFunc("/review", complianceHandler.Review).Methods("POST")

	// ZK endpoints.
	r.HandleFunc("/zk/commitment", zkHandler.Commit).Methods("POST")
	r.HandleFunc("/zk/commitment/{id}", zkHandler.GetCommitment).Methods("GET")
	r.HandleFunc("/zk/prove", zkHandler.Prove).Methods("POST")
	r.HandleFunc("/zk/verify", zkHandler.Verify).Methods("POST")

	// Auth endpoints — registration is rate-limited; /auth/me and
	// /auth/rotate-key require an authenticated party; party listing,
	// revocation and the auth reset are unauthenticated demo endpoints.
	authRegister := r.PathPrefix("/auth").Subrouter()
	authRegister.Use(registerLimitMW.Limit)
	authRegister.HandleFunc("/register", authHandler.Register).Methods("POST")

	r.HandleFunc("/auth/parties", authHandler.ListParties).Methods("GET")
	r.HandleFunc("/auth/parties/{party_id}", authHandler.RevokeParty).Methods("DELETE")
	r.HandleFunc("/demo/auth-reset", authHandler.DemoReset).Methods("POST")

	authProtected := r.PathPrefix("/auth").Subrouter()
	authProtected.Use(authMW.Authenticate)
	authProtected.HandleFunc("/me", authHandler.Me).Methods("GET")
	authProtected.HandleFunc("/rotate-key", authHandler.RotateKey).Methods("POST")

	// Mirror endpoints, all demo-only.
	r.HandleFunc("/demo/mirror/sync", mirrorHandler.Sync).Methods("POST")
	r.HandleFunc("/demo/mirror/status", mirrorHandler.Status).Methods("GET")
	r.HandleFunc("/demo/mirror/compare", mirrorHandler.Compare).Methods("GET")
	r.HandleFunc("/demo/mirror/tamper", mirrorHandler.Tamper).Methods("POST")
	r.HandleFunc("/demo/mirror/detect", mirrorHandler.Detect).Methods("GET")
	r.HandleFunc("/demo/mirror/reset", mirrorHandler.Reset).Methods("POST")

	return r
}
