package handler

import (
	"account_service/internal/metrics"
	"account_service/internal/service"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

const (
	msgSignupOK        = "Registration successful. Check your email for verification."
	msgSignupNoMail    = "Registration successful, but the verification email could not be sent."
	msgTokenRequired   = "Token is required."
	msgVerified        = "Email verified successfully. Go to the login page."
	msgAlreadyVerified = "Email already verified."
	msgInvalidToken    = "Invalid or expired token."
	msgInvalidCreds    = "Invalid credentials."
	msgNotVerified     = "Please verify your email before logging in."
	msgLoginOK         = "Login successful"
	msgEmailRequired   = "Email is required."
	msgResetSent       = "If your email exists, a reset link has been sent."
	msgResetFields     = "Token and password are required."
	msgResetOK         = "Password reset successful."
	msgInvalidInput    = "Invalid input."
	msgInternal        = "internal error"
	msgEmptyAuthHeader = "empty authorization header"
	msgBadAuthHeader   = "invalid authorization header"
	msgBadBearerToken  = "invalid token"
)

type Handler struct {
	serviceLayer service.Service
	verifier     TokenVerifier
	metrics      *metrics.Metrics
	metricsPage  http.Handler
	log          *slog.Logger
}

type errorResponse struct {
	Detail string               `json:"detail"`
	Errors []service.FieldError `json:"errors,omitempty"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type signupResponse struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

type tokensResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	Message string `json:"message,omitempty"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Detail: errMessage})
}

func newValidationResponse(c *gin.Context, verr *service.ValidationError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Detail: msgInvalidInput, Errors: verr.Fields})
}

// NewHandler builds the REST surface. metricsPage may be nil to omit /metrics.
func NewHandler(srvc service.Service, verifier TokenVerifier, m *metrics.Metrics, metricsPage http.Handler, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		verifier:     verifier,
		metrics:      m,
		metricsPage:  metricsPage,
		log:          lgr,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestMetrics(h.metrics))

	router.POST("/signup", h.Signup)
	router.GET("/verify-email", h.VerifyEmail)
	router.POST("/login", h.Login)
	router.POST("/token/refresh", h.RefreshTokens)
	router.POST("/forgot-password", h.ForgotPassword)
	router.POST("/reset-password", h.ResetPassword)

	router.GET("/me", AuthMiddleware(h.verifier), h.GetProfile)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metricsPage != nil {
		router.GET("/metrics", gin.WrapH(h.metricsPage))
	}

	return router
}

// POST /signup
func (h *Handler) Signup(c *gin.Context) {
	const op = "handler.Signup"

	log := h.log.With(slog.String("op", op))

	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, msgInvalidInput)

		return
	}

	_, err := h.serviceLayer.Register(c.Request.Context(), req)

	var verr *service.ValidationError
	var derr *service.DeliveryError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, signupResponse{Success: true, Detail: msgSignupOK})
	case errors.As(err, &verr):
		newValidationResponse(c, verr)
	case errors.As(err, &derr):
		log.Error("account created without verification email", slog.Any("error", err))

		c.AbortWithStatusJSON(http.StatusBadGateway, signupResponse{Success: false, Detail: msgSignupNoMail})
	default:
		log.Error("failed to register account", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	}
}

// GET /verify-email?token=
func (h *Handler) VerifyEmail(c *gin.Context) {
	const op = "handler.VerifyEmail"

	log := h.log.With(slog.String("op", op))

	token := c.Query("token")
	if token == "" {
		newErrorResponse(c, http.StatusBadRequest, msgTokenRequired)

		return
	}

	res, err := h.serviceLayer.VerifyEmail(c.Request.Context(), token)
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		newErrorResponse(c, http.StatusBadRequest, msgInvalidToken)
	case err != nil:
		log.Error("failed to verify email", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	case res.AlreadyVerified:
		c.JSON(http.StatusOK, detailResponse{Detail: msgAlreadyVerified})
	default:
		c.JSON(http.StatusOK, detailResponse{Detail: msgVerified})
	}
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, msgInvalidInput)

		return
	}

	pair, err := h.serviceLayer.Login(c.Request.Context(), req)

	var verr *service.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, tokensResponse{Access: pair.Access, Refresh: pair.Refresh, Message: msgLoginOK})
	case errors.As(err, &verr):
		newValidationResponse(c, verr)
	case errors.Is(err, service.ErrInvalidCredentials):
		newErrorResponse(c, http.StatusUnauthorized, msgInvalidCreds)
	case errors.Is(err, service.ErrAccountNotVerified):
		newErrorResponse(c, http.StatusForbidden, msgNotVerified)
	default:
		log.Error("failed to login", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	}
}

// POST /token/refresh
func (h *Handler) RefreshTokens(c *gin.Context) {
	const op = "handler.RefreshTokens"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Refresh string `json:"refresh"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		newErrorResponse(c, http.StatusBadRequest, msgTokenRequired)

		return
	}

	pair, err := h.serviceLayer.Refresh(c.Request.Context(), req.Refresh)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, tokensResponse{Access: pair.Access, Refresh: pair.Refresh})
	case errors.Is(err, service.ErrInvalidToken):
		newErrorResponse(c, http.StatusBadRequest, msgInvalidToken)
	default:
		log.Error("failed to refresh tokens", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	}
}

// POST /forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	const op = "handler.ForgotPassword"

	log := h.log.With(slog.String("op", op))

	var req struct {
		Email string `json:"email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		newErrorResponse(c, http.StatusBadRequest, msgEmailRequired)

		return
	}

	err := h.serviceLayer.RequestPasswordReset(c.Request.Context(), req.Email)

	var verr *service.ValidationError
	var derr *service.DeliveryError
	switch {
	case errors.As(err, &verr):
		newErrorResponse(c, http.StatusBadRequest, msgEmailRequired)

		return
	case errors.As(err, &derr):
		// the caller must not learn that the address is registered
		log.Error("reset email not delivered", slog.Any("error", err))
	case err != nil:
		log.Error("failed to request password reset", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)

		return
	}

	c.JSON(http.StatusOK, detailResponse{Detail: msgResetSent})
}

// POST /reset-password
func (h *Handler) ResetPassword(c *gin.Context) {
	const op = "handler.ResetPassword"

	log := h.log.With(slog.String("op", op))

	var req service.ResetInput
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" || req.Password == "" {
		newErrorResponse(c, http.StatusBadRequest, msgResetFields)

		return
	}

	err := h.serviceLayer.ResetPassword(c.Request.Context(), req)

	var verr *service.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, detailResponse{Detail: msgResetOK})
	case errors.As(err, &verr):
		newValidationResponse(c, verr)
	case errors.Is(err, service.ErrInvalidToken):
		newErrorResponse(c, http.StatusBadRequest, msgInvalidToken)
	default:
		log.Error("failed to reset password", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	}
}

// GET /me
func (h *Handler) GetProfile(c *gin.Context) {
	const op = "handler.GetProfile"

	log := h.log.With(slog.String("op", op))

	id, ok := c.Get(accountIDKey)
	if !ok {
		log.Error("failed to get account id from context")

		newErrorResponse(c, http.StatusUnauthorized, msgBadBearerToken)

		return
	}

	accountID, ok := id.(uuid.UUID)
	if !ok {
		log.Error("invalid account id", slog.Any("id", id))

		newErrorResponse(c, http.StatusUnauthorized, msgBadBearerToken)

		return
	}

	profile, err := h.serviceLayer.GetProfile(c.Request.Context(), accountID)
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		newErrorResponse(c, http.StatusUnauthorized, msgBadBearerToken)
	case err != nil:
		log.Error("failed to get profile", slog.Any("account_id", accountID), slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, msgInternal)
	default:
		c.JSON(http.StatusOK, profile)
	}
}
