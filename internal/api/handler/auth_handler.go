package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/devhub/community-api/internal/api/metrics"
	"github.com/devhub/community-api/internal/core/domain"
	"github.com/devhub/community-api/internal/core/ports"
)

// Stable success messages; error messages live in the central error handler.
const (
	msgSignupSuccess        = "Account created successfully. Please check your email to verify your account."
	msgLoginSuccess         = "Login successful"
	msgEmailVerified        = "Email verified successfully"
	msgPasswordResetSent    = "Password reset instructions have been sent to your email"
	msgPasswordResetSuccess = "Password has been reset successfully"
	msgTokenRefreshed       = "Access token refreshed successfully"
	msgTokenValid           = "Token is valid"
	msgLogoutSuccess        = "Logged out successfully"
	msgOAuthLoginSuccess    = "OAuth login successful"
	msgTokenRequired        = "Authentication token is required"
)

type AuthHandler struct {
	identity ports.IdentityService
}

func NewAuthHandler(identity ports.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// apiResponse is the success envelope: a stable message plus optional data.
type apiResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Signup registers a new account and mails its verification code.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Registration details"
// @Success      201   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.identity.Signup(c.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(signupResult(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, apiResponse{
		Message: msgSignupSuccess,
		Data:    map[string]any{"account": account.Summarize()},
	})
}

// VerifyEmail confirms the one-time code mailed at signup.
//
// @Summary      Verify email with OTP
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyEmailRequest  true  "Email and OTP"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.identity.VerifyEmail(c.Request().Context(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Message: msgEmailVerified})
}

// Login authenticates credentials and issues an access/refresh token pair.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, apiResponse{Message: msgLoginSuccess, Data: result})
}

// Refresh rotates the refresh token and issues a new access token.
//
// @Summary      Exchange a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Current refresh token"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, msgTokenRequired)
	}

	pair, err := h.identity.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("rejected").Inc()
		return err
	}

	metrics.TokenRefreshTotal.WithLabelValues("rotated").Inc()
	return c.JSON(http.StatusOK, apiResponse{Message: msgTokenRefreshed, Data: pair})
}

// Logout invalidates the presented refresh token. The access guard runs
// upstream, so only an authenticated caller reaches this.
//
// @Summary      Logout
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      logoutRequest  true  "Refresh token to revoke"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, msgTokenRequired)
	}

	if err := h.identity.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Message: msgLogoutSuccess})
}

// ForgotPassword mails a time-boxed reset link.
//
// @Summary      Request a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.identity.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return c.JSON(http.StatusOK, apiResponse{Message: msgPasswordResetSent})
}

// ResetPassword confirms a pending reset with its token.
//
// @Summary      Confirm a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.identity.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	return c.JSON(http.StatusOK, apiResponse{Message: msgPasswordResetSuccess})
}

// OAuthLogin signs in with a provider profile verified upstream, creating
// the account on first login.
//
// @Summary      OAuth login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      oauthProfileRequest  true  "Provider profile"
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/oauth [post]
func (h *AuthHandler) OAuthLogin(c echo.Context) error {
	var req oauthProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.identity.OAuthLogin(c.Request().Context(), domain.OAuthProfile{
		ProviderID: req.ProviderID,
		Username:   req.Username,
		Email:      req.Email,
	})
	if err != nil {
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, apiResponse{Message: msgOAuthLoginSuccess, Data: result})
}

// VerifyToken introspects the bearer token in the Authorization header.
//
// @Summary      Verify an access token
// @Tags         auth
// @Produce      json
// @Success      200   {object}  apiResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/verify-token [post]
func (h *AuthHandler) VerifyToken(c echo.Context) error {
	header := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return echo.NewHTTPError(http.StatusBadRequest, msgTokenRequired)
	}

	claims, err := h.identity.VerifyAccessToken(parts[1])
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, apiResponse{
		Message: msgTokenValid,
		Data: map[string]any{
			"account_id": claims.AccountID,
			"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339),
			"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// Me returns the authenticated account's summary.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Success      200   {object}  apiResponse
// @Failure      401   {object}  map[string]string
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	accountID, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.identity.Account(c.Request().Context(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apiResponse{Message: msgTokenValid, Data: account.Summarize()})
}

// Session reports whether a valid identity accompanied the request. Mounted
// behind the optional guard: anonymous requests get authenticated=false.
//
// @Summary      Session introspection
// @Tags         auth
// @Produce      json
// @Success      200   {object}  apiResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	data := map[string]any{"authenticated": false}
	if id, err := ctxAccountID(c); err == nil {
		data["authenticated"] = true
		data["account_id"] = id
	}
	return c.JSON(http.StatusOK, apiResponse{Message: "session", Data: data})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func signupResult(err error) string {
	if errors.Is(err, domain.ErrEmailAlreadyExists) || errors.Is(err, domain.ErrUsernameAlreadyExists) {
		return "duplicate"
	}
	return "error"
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrEmailNotVerified):
		return "unverified"
	default:
		return "error"
	}
}
