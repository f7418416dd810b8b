package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/cache"
	"clinic-booking-server/internal/models"
)

// TokenIssuer signs and verifies the tokens handed out at login.
type TokenIssuer interface {
	IssueAccess(user *models.User) (string, error)
	IssueRefresh(user *models.User) (token string, expiresAt time.Time, err error)
	VerifyRefresh(token string) (userID string, err error)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	Role        string
	PhoneNumber string
	Speciality  string
	HospitalID  string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User             *models.User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LogoutInput identifies what to revoke on logout.
type LogoutInput struct {
	RefreshToken    string
	AccessTokenID   string
	AccessExpiresAt time.Time
}

// AccountService wraps the identity provider: accounts, profiles and sessions.
type AccountService struct {
	users    UserRepository
	sessions SessionRepository
	tokens   TokenIssuer
	denylist cache.Denylist
	now      func() time.Time
	log      zerolog.Logger
}

func NewAccountService(users UserRepository, sessions SessionRepository, tokens TokenIssuer, denylist cache.Denylist, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		denylist: denylist,
		now:      time.Now,
		log:      log,
	}
}

// Register creates an account and its profile. Doctors must name a
// speciality and hospital and are given staff rights.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("full_name, email and password are required")
	}

	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, apperr.Validation("role must be PATIENT or DOCTOR")
	}

	profile := &models.Profile{
		Role:        role,
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
	}
	if role == models.RoleDoctor {
		profile.Speciality = strings.TrimSpace(in.Speciality)
		profile.HospitalID = strings.TrimSpace(in.HospitalID)
		if profile.Speciality == "" || profile.HospitalID == "" {
			return nil, apperr.Validation("speciality and hospital_id are required for doctors")
		}
	}

	user := &models.User{
		Email:    email,
		FullName: fullName,
		IsStaff:  role == models.RoleDoctor,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}
	user.Profile = profile

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("account registered")
	return user, nil
}

// Login checks credentials and opens a refresh session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindInvalidCredentials, "invalid email or password")
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, apperr.New(apperr.KindInvalidCredentials, "invalid email or password")
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	session := &models.Session{UserID: user.ID, Token: res.RefreshToken, ExpiresAt: res.RefreshExpiresAt}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh exchanges an active refresh token for a new token pair. The old
// session is revoked.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, "invalid refresh token", err)
	}

	current, err := s.sessions.FindActive(ctx, refreshToken, userID, s.now())
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindUnauthenticated, "refresh token not found, expired, or revoked")
		}
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindUnauthenticated, "account no longer exists")
		}
		return nil, err
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	next := &models.Session{UserID: user.ID, Token: res.RefreshToken, ExpiresAt: res.RefreshExpiresAt}
	if err := s.sessions.Rotate(ctx, current, next); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindUnauthenticated, "refresh token already used")
		}
		return nil, err
	}
	return res, nil
}

// Logout revokes the refresh session and denylists the access token.
// Unknown or already revoked refresh tokens are not an error.
func (s *AccountService) Logout(ctx context.Context, in LogoutInput) error {
	if in.RefreshToken != "" {
		if err := s.sessions.Revoke(ctx, in.RefreshToken); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
	}
	if in.AccessTokenID != "" {
		if err := s.denylist.Revoke(ctx, in.AccessTokenID, in.AccessExpiresAt); err != nil {
			return apperr.Internal("failed to revoke access token", err)
		}
	}
	return nil
}

// TokenRevoked reports whether an access token was revoked by logout.
func (s *AccountService) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	revoked, err := s.denylist.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, apperr.Internal("failed to check token revocation", err)
	}
	return revoked, nil
}

// Identify resolves a user id from a verified token into an Identity. The
// staff flag is read from the store on every call.
func (s *AccountService) Identify(ctx context.Context, userID string) (Identity, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return Identity{}, apperr.New(apperr.KindUnauthenticated, "account no longer exists")
		}
		return Identity{}, err
	}
	return Identity{UserID: user.ID, Email: user.Email, Elevated: user.IsStaff}, nil
}

// Profile returns the caller's account with its profile.
func (s *AccountService) Profile(ctx context.Context, ident Identity) (*models.User, error) {
	if err := requireIdentity(ident); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, ident.UserID)
}

func (s *AccountService) issue(user *models.User) (*LoginResult, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return nil, apperr.Internal("failed to generate access token", err)
	}
	refresh, expiresAt, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return nil, apperr.Internal("failed to generate refresh token", err)
	}
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh, RefreshExpiresAt: expiresAt}, nil
}
