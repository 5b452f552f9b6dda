package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// AuthHandler serves the account lifecycle: register, verify, resend and login.
type AuthHandler struct {
	accounts ports.AccountService
	perms    ports.PermissionService
}

func NewAuthHandler(accounts ports.AccountService, perms ports.PermissionService) *AuthHandler {
	return &AuthHandler{accounts: accounts, perms: perms}
}

// Register creates a pending account and emails its verification code.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Failure      500   {object}  errorBody
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindBody(c, &req); err != nil {
		metrics.AccountOperationsTotal.WithLabelValues("register", resultLabel(err)).Inc()
		return err
	}

	res, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
		ReferredBy: req.ReferredBy,
	})
	metrics.AccountOperationsTotal.WithLabelValues("register", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// VerifyEmail redeems a one-time code.
//
// @Summary      Verify an account email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyEmailRequest  true  "Email and OTP"
// @Success      200   {object}  verifyResponse
// @Failure      400   {object}  errorBody
// @Router       /v1/auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bindBody(c, &req); err != nil {
		metrics.AccountOperationsTotal.WithLabelValues("verify_email", resultLabel(err)).Inc()
		return err
	}

	res, err := h.accounts.VerifyEmail(c.Request().Context(), req.Email, req.OTP)
	metrics.AccountOperationsTotal.WithLabelValues("verify_email", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ResendVerification issues a fresh code to a pending account.
//
// @Summary      Resend the verification code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resendVerificationRequest  true  "Email"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /v1/auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c echo.Context) error {
	var req resendVerificationRequest
	if err := bindBody(c, &req); err != nil {
		metrics.AccountOperationsTotal.WithLabelValues("resend_verification", resultLabel(err)).Inc()
		return err
	}

	res, err := h.accounts.ResendVerification(c.Request().Context(), req.Email)
	metrics.AccountOperationsTotal.WithLabelValues("resend_verification", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Login authenticates a verified account and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		metrics.AccountOperationsTotal.WithLabelValues("login", resultLabel(err)).Inc()
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	metrics.AccountOperationsTotal.WithLabelValues("login", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// MyActions lists the actions granted to the caller's role.
//
// @Summary      Caller permissions
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  myActionsResponse
// @Failure      401  {object}  errorBody
// @Router       /v1/me/actions [get]
func (h *AuthHandler) MyActions(c echo.Context) error {
	_, role, err := ctxClaims(c)
	if err != nil {
		return err
	}

	actions, err := h.perms.ActionsForRole(c.Request().Context(), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, myActionsResponse{Role: role.Name, Actions: actions})
}
