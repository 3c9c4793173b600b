package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"kawach/internal/database"
	"kawach/internal/http/middleware"
	"kawach/internal/service"
)

// Deps are the collaborators RegisterRoutes wires into handlers.
type Deps struct {
	DB        database.Pinger
	Documents service.DocumentService
	Grants    service.GrantService
	Verifier  middleware.TokenVerifier

	// RetrieveRPS and RetrieveBurst limit the public token routes. Zero disables limiting.
	RetrieveRPS   int
	RetrieveBurst int
	Location      *time.Location
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Owner routes require a bearer token; /retrieve and /print are authorized by the token in the route.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	auth := middleware.Authenticate(d.Verifier)

	app.Get("/documents", auth, ListDocuments(d.Documents))
	app.Post("/documents", auth, UploadDocument(d.Documents))
	app.Get("/documents/:id", auth, GetDocument(d.Documents))
	app.Delete("/documents/:id", auth, DeleteDocument(d.Documents))

	app.Post("/grant", auth, RequestGrant(d.Grants))
	app.Get("/grant/:documentId", auth, GrantStatus(d.Grants))
	app.Get("/grant/:documentId/artifact", auth, GrantArtifact(d.Grants))

	limit := func(c *fiber.Ctx) error { return c.Next() }
	if d.RetrieveRPS > 0 {
		// One limiter shared by both token routes.
		limit = middleware.RateLimiter(d.RetrieveRPS, d.RetrieveBurst)
	}
	app.Get("/retrieve/:documentId", limit, Retrieve(d.Grants))
	app.Get("/print/:documentId", limit, Print(d.Grants, d.Location))
}
