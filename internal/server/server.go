package server

import (
	"context"
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/handler"
	appmiddleware "dinedash-backend/internal/middleware"
	"dinedash-backend/internal/service"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Services struct {
	Orders   service.OrderService
	Payments service.PaymentService
	Checkout service.CheckoutService
	Catalog  service.CatalogService
}

type Server struct {
	echo            *echo.Echo
	db              *gorm.DB
	log             zerolog.Logger
	jwtSecret       string
	orderHandler    *handler.OrderHandler
	checkoutHandler *handler.CheckoutHandler
	paymentHandler  *handler.PaymentHandler
	menuHandler     *handler.MenuHandler
}

func NewServer(cfg *config.Config, log zerolog.Logger, db *gorm.DB, svc Services) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = dto.NewValidator()

	s := &Server{
		echo:            e,
		db:              db,
		log:             log.With().Str("component", "http").Logger(),
		jwtSecret:       cfg.Auth.JWTSecret,
		orderHandler:    handler.NewOrderHandler(svc.Orders),
		checkoutHandler: handler.NewCheckoutHandler(svc.Checkout),
		paymentHandler:  handler.NewPaymentHandler(svc.Payments),
		menuHandler:     handler.NewMenuHandler(svc.Catalog),
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.log.Info()
			if v.Status >= http.StatusInternalServerError {
				evt = s.log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiterWithConfig(rateLimiterConfig(cfg.RateLimit)))

	s.setupRoutes()
	return s
}

func rateLimiterConfig(cfg config.RateLimit) middleware.RateLimiterConfig {
	return middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RPS),
				Burst:     cfg.Burst,
				ExpiresIn: cfg.TTL,
			}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "could not identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	}
}

func (s *Server) setupRoutes() {
	staffOnly := appmiddleware.StaffOnly(s.jwtSecret)

	s.echo.GET("/health", s.health)
	s.echo.GET("/menu", s.menuHandler.ListMenu)

	// -------- orders --------
	s.echo.POST("/orders", s.orderHandler.CreateOrder)
	s.echo.GET("/orders/:tracking_code", s.orderHandler.TrackOrder)
	s.echo.GET("/orders", s.orderHandler.ListOrders, staffOnly...)
	s.echo.GET("/orders/staff/:id", s.orderHandler.GetOrder, staffOnly...)
	s.echo.PATCH("/orders/:id/status", s.orderHandler.UpdateStatus, staffOnly...)

	// -------- checkout / payments --------
	s.echo.POST("/checkout", s.checkoutHandler.Checkout)
	s.echo.GET("/payments/verify", s.paymentHandler.VerifyPayment)
	s.echo.POST("/payments/finalize", s.paymentHandler.FinalizePayment, staffOnly...)
}

func (s *Server) health(c echo.Context) error {
	resp := dto.HealthResponse{Status: "ok", Database: "ok"}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		s.log.Error().Err(err).Msg("database ping")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}

	return c.JSON(http.StatusOK, resp)
}

// handleError renders every failure as {"error": true, "code", "message", "details"}.
// Storage failures are logged and reported without detail.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err, c)

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("write error response")
	}
}

func (s *Server) errorResponse(err error, c echo.Context) (int, dto.ErrorResponse) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		kind := appErr.Kind
		status := apperr.HTTPStatus(kind)
		if status >= http.StatusInternalServerError && kind != apperr.KindGatewayFailure {
			s.logInternal(err, c)
			return status, internalError()
		}
		if kind == apperr.KindGatewayFailure {
			s.log.Warn().Err(err).Str("uri", c.Request().RequestURI).Msg("gateway failure")
		}
		return status, dto.ErrorResponse{
			Error:   true,
			Code:    string(kind),
			Message: appErr.Message,
			Details: appErr.Fields,
		}
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code >= http.StatusInternalServerError {
			s.logInternal(err, c)
			return httpErr.Code, internalError()
		}
		return httpErr.Code, dto.ErrorResponse{
			Error:   true,
			Code:    codeForStatus(httpErr.Code),
			Message: fmt.Sprint(httpErr.Message),
		}
	}

	s.logInternal(err, c)
	return http.StatusInternalServerError, internalError()
}

func (s *Server) logInternal(err error, c echo.Context) {
	s.log.Error().Err(err).
		Str("method", c.Request().Method).
		Str("uri", c.Request().RequestURI).
		Msg("internal error")
}

func internalError() dto.ErrorResponse {
	return dto.ErrorResponse{
		Error:   true,
		Code:    string(apperr.KindStorageFailure),
		Message: "internal server error",
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return string(apperr.KindValidation)
	case http.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperr.KindForbidden)
	case http.StatusNotFound:
		return string(apperr.KindNotFound)
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		return "http_error"
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	s.log.Info().Str("address", address).Msg("http server listening")
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
