package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventplatform/internal/delivery/http/controllers"
)

// NewRouter initializes the HTTP router with all application routes.
// requireAuth wraps handlers that need an authenticated user. rateLimit is
// applied to every application route; on authenticated routes it runs inside
// requireAuth so the client key is the user ID rather than the remote IP.
// metricsHandler serves the Prometheus scrape endpoint.
func NewRouter(
	eventController *controllers.EventController,
	enrollmentController *controllers.EnrollmentController,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	requireAuth func(http.HandlerFunc) http.HandlerFunc,
	rateLimit func(http.HandlerFunc) http.HandlerFunc,
	metricsHandler http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()
	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return requireAuth(rateLimit(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", rateLimit(authController.SignUp))
	mux.HandleFunc("POST /auth/login", rateLimit(authController.Login))
	mux.HandleFunc("GET /auth/profile", protected(userController.GetProfile))

	// Events
	mux.HandleFunc("GET /events", rateLimit(eventController.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", rateLimit(eventController.GetEventByID))
	mux.HandleFunc("POST /events", protected(eventController.CreateEvent))
	mux.HandleFunc("PUT /events/{eventID}", protected(eventController.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", protected(eventController.DeleteEvent))

	// Enrollment
	mux.HandleFunc("POST /events/{eventID}/join", protected(enrollmentController.Join))
	mux.HandleFunc("POST /events/{eventID}/leave", protected(enrollmentController.Leave))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Prometheus scrape endpoint
	mux.Handle("GET /metrics", metricsHandler)

	return mux
}
