package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AccountService is the account behaviour the auth handlers depend on.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.LoginResult, error)
	Logout(ctx context.Context, in services.LogoutInput) error
	Profile(ctx context.Context, ident services.Identity) (*models.User, error)
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	accounts     AccountService
	secureCookie bool
	refreshTTL   time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountService, secureCookie bool, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{accounts: accounts, secureCookie: secureCookie, refreshTTL: refreshTTL}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FullName    string `json:"full_name" validate:"required,max=150"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	Role        string `json:"role"`
	PhoneNumber string `json:"phone_number" validate:"max=15"`
	Speciality  string `json:"speciality" validate:"max=100"`
	HospitalID  string `json:"hospital_id" validate:"max=50"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		PhoneNumber: req.PhoneNumber,
		Speciality:  req.Speciality,
		HospitalID:  req.HospitalID,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	IsAdmin      bool   `json:"isAdmin"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	res, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, res.RefreshToken, int(h.refreshTTL.Seconds()))
	utils.Success(c, "Login successful", LoginResponse{
		UserID:       res.User.ID,
		Email:        res.User.Email,
		IsAdmin:      res.User.IsStaff,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token, read from the cookie or the body,
// for a new token pair.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		token = req.RefreshToken
	}

	res, err := h.accounts.Refresh(c.Request.Context(), token)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, res.RefreshToken, int(h.refreshTTL.Seconds()))
	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

// LogoutRequest represents the optional request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the refresh session and the access token used for the call.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(refreshCookie)
	}

	tokenID, expiresAt := middleware.AccessTokenFromContext(c)
	err := h.accounts.Logout(c.Request.Context(), services.LogoutInput{
		RefreshToken:    req.RefreshToken,
		AccessTokenID:   tokenID,
		AccessExpiresAt: expiresAt,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	utils.Success(c, "Logged out successfully", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	user, err := h.accounts.Profile(c.Request.Context(), ident)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.secureCookie, true)
}
