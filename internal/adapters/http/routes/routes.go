package routes

import (
	"mediconnect/internal/adapters/http/handlers"
	"mediconnect/internal/adapters/http/middleware"
	"mediconnect/internal/adapters/persistence/repositories"
	"mediconnect/internal/config"
	"mediconnect/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Services bundles the wired service layer so main can hand parts of it
// to the cron scheduler.
type Services struct {
	Auth         *services.AuthService
	User         *services.UserService
	Settings     *services.SettingsService
	Availability *services.AvailabilityService
	Booking      *services.BookingService
	Appointment  *services.AppointmentService
	Payout       *services.PayoutService
	Admin        *services.AdminService
	Notification *services.NotificationService
	Cron         *services.CronService
}

// Setup wires repositories, services and handlers, and registers all routes
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *Services {
	// Repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	availabilityRepo := repositories.NewAvailabilityRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	creditRepo := repositories.NewCreditRepository(db)
	payoutRepo := repositories.NewPayoutRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// Services
	notificationService := services.NewNotificationService(notificationRepo)
	settingsService := services.NewSettingsService(settingsRepo)
	authService := services.NewAuthService(userRepo, refreshTokenRepo,
		cfg.JWT.Secret, cfg.JWT.AccessTokenMins, cfg.JWT.RefreshTokenDays)
	userService := services.NewUserService(userRepo, creditRepo)
	availabilityService := services.NewAvailabilityService(availabilityRepo, appointmentRepo, userRepo, cfg.Clinic.Location)
	videoProvider := services.NewUUIDVideoProvider()
	bookingService := services.NewBookingService(db, userRepo, appointmentRepo, creditRepo,
		settingsService, videoProvider, notificationService)
	appointmentService := services.NewAppointmentService(db, appointmentRepo, creditRepo,
		settingsService, videoProvider, notificationService)
	payoutService := services.NewPayoutService(db, userRepo, payoutRepo, creditRepo,
		settingsService, notificationService)
	adminService := services.NewAdminService(db, userRepo, appointmentRepo, creditRepo,
		payoutRepo, notificationService)
	cronService := services.NewCronService(appointmentRepo, userRepo, refreshTokenRepo, notificationService)

	// Handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, userService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	availabilityHandler := handlers.NewAvailabilityHandler(availabilityService)
	appointmentHandler := handlers.NewAppointmentHandler(bookingService, appointmentService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	adminHandler := handlers.NewAdminHandler(adminService, userService, settingsService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	setupAuthRoutes(apiV1.Group("/auth"), authHandler, cfg)
	setupPublicRoutes(apiV1, userHandler, availabilityHandler)
	setupUserRoutes(apiV1, userHandler, cfg)
	setupAvailabilityRoutes(apiV1.Group("/availability"), availabilityHandler, cfg)
	setupAppointmentRoutes(apiV1.Group("/appointments"), appointmentHandler, cfg)
	setupPayoutRoutes(apiV1.Group("/payouts"), payoutHandler, cfg)
	setupNotificationRoutes(apiV1.Group("/notifications"), notificationHandler, cfg)
	setupAdminRoutes(apiV1.Group("/admin"), adminHandler, payoutHandler, cfg)

	return &Services{
		Auth:         authService,
		User:         userService,
		Settings:     settingsService,
		Availability: availabilityService,
		Booking:      bookingService,
		Appointment:  appointmentService,
		Payout:       payoutService,
		Admin:        adminService,
		Notification: notificationService,
		Cron:         cronService,
	}
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes, throttled against brute force
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupPublicRoutes configures the doctor directory and slot listings.
// Slots are computed from live bookings and must not be cached.
func setupPublicRoutes(router fiber.Router, userHandler *handlers.UserHandler, availabilityHandler *handlers.AvailabilityHandler) {
	router.Get("/doctors", middleware.DirectoryCache(), userHandler.ListDoctors)
	router.Get("/doctors/:id", middleware.DirectoryCache(), userHandler.GetDoctor)
	router.Get("/doctors/:id/slots", middleware.NoCacheHeaders(), availabilityHandler.GetSlots)
}

// setupUserRoutes configures profile routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler, cfg *config.Config) {
	users := router.Group("/users", middleware.AuthMiddleware(cfg))
	users.Put("/me", handler.UpdateProfile)
	users.Get("/me/credits", handler.GetLedger)
}

// setupAvailabilityRoutes configures availability window routes (doctors only)
func setupAvailabilityRoutes(router fiber.Router, handler *handlers.AvailabilityHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg))
	router.Use(middleware.DoctorOnly())

	router.Post("/", handler.CreateWindow)
	router.Get("/", handler.ListWindows)
	router.Delete("/:id", handler.DeleteWindow)
	router.Patch("/:id/status", handler.SetWindowStatus)
}

// setupAppointmentRoutes configures booking and lifecycle routes
func setupAppointmentRoutes(router fiber.Router, handler *handlers.AppointmentHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg))

	router.Post("/", middleware.PatientOnly(), middleware.BookingRateLimiter(), handler.Book)
	router.Get("/", handler.GetMine)
	router.Get("/:id", handler.GetByID)
	router.Post("/:id/cancel", handler.Cancel)
	router.Post("/:id/complete", middleware.DoctorOnly(), handler.Complete)
	router.Post("/:id/join", handler.Join)
}

// setupPayoutRoutes configures doctor payout routes
func setupPayoutRoutes(router fiber.Router, handler *handlers.PayoutHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg))
	router.Use(middleware.DoctorOnly())

	router.Post("/", handler.Request)
	router.Get("/", handler.GetMine)
}

// setupNotificationRoutes configures the notification bell and stream
func setupNotificationRoutes(router fiber.Router, handler *handlers.NotificationHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg))

	router.Get("/", handler.List)
	router.Get("/stream", handler.Stream)
	router.Post("/read-all", handler.MarkAllRead)
	router.Post("/:id/read", handler.MarkRead)
}

// setupAdminRoutes configures arbitration and platform management routes
func setupAdminRoutes(router fiber.Router, adminHandler *handlers.AdminHandler, payoutHandler *handlers.PayoutHandler, cfg *config.Config) {
	router.Use(middleware.AuthMiddleware(cfg))
	router.Use(middleware.AdminOnly())

	router.Get("/dashboard", adminHandler.Dashboard)

	router.Get("/appointments/escrowed", adminHandler.ListEscrowed)
	router.Post("/appointments/:id/release", adminHandler.Release)
	router.Post("/appointments/:id/refund", adminHandler.Refund)

	router.Get("/users", adminHandler.ListUsers)
	router.Post("/users/:id/active", adminHandler.SetUserActive)
	router.Post("/doctors/:id/verify", adminHandler.VerifyDoctor)
	router.Post("/credits", adminHandler.AdjustCredits)

	router.Get("/payouts", payoutHandler.List)
	router.Post("/payouts/:id/approve", payoutHandler.Approve)

	router.Get("/settings", adminHandler.GetSettings)
	router.Put("/settings", adminHandler.UpdateSetting)
}
