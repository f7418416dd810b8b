package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"clinic-booking-server/internal/apperr"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/routes"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// tokenTable accepts bearer tokens equal to a known user id.
type tokenTable map[string]bool

func (t tokenTable) ValidateAccess(token string) (*utils.Claims, error) {
	if !t[token] {
		return nil, errors.New("invalid token")
	}
	return &utils.Claims{
		UserID: token,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-" + token,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}, nil
}

type stubAccounts struct {
	staff     map[string]bool
	revoked   map[string]bool
	registered []services.RegisterInput
	logouts   []services.LogoutInput
}

func (s *stubAccounts) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	if in.Role == "DOCTOR" && in.Speciality == "" {
		return nil, apperr.Validation("speciality and hospital_id are required for doctors")
	}
	s.registered = append(s.registered, in)
	u := &models.User{Email: in.Email, FullName: in.FullName, Profile: &models.Profile{Role: models.RolePatient}}
	u.ID = "new-user"
	return u, nil
}

func (s *stubAccounts) Login(_ context.Context, email, password string) (*services.LoginResult, error) {
	if password != "password123" {
		return nil, apperr.New(apperr.KindInvalidCredentials, "invalid email or password")
	}
	u := &models.User{Email: email, IsStaff: true}
	u.ID = "u-1"
	return &services.LoginResult{User: u, AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAccounts) Refresh(_ context.Context, token string) (*services.LoginResult, error) {
	if token != "refresh" {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid refresh token")
	}
	u := &models.User{}
	u.ID = "u-1"
	return &services.LoginResult{User: u, AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *stubAccounts) Logout(_ context.Context, in services.LogoutInput) error {
	s.logouts = append(s.logouts, in)
	return nil
}

func (s *stubAccounts) Profile(_ context.Context, ident services.Identity) (*models.User, error) {
	u := &models.User{Email: ident.Email, FullName: "Alice", Profile: &models.Profile{Role: models.RolePatient}}
	u.ID = ident.UserID
	return u, nil
}

func (s *stubAccounts) TokenRevoked(_ context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], nil
}

func (s *stubAccounts) Identify(_ context.Context, userID string) (services.Identity, error) {
	return services.Identity{UserID: userID, Email: userID + "@example.com", Elevated: s.staff[userID]}, nil
}

type stubAppointments struct {
	created  []services.CreateAppointmentInput
	lastList string
	updates  []services.UpdateStatusInput
	deleted  []string
}

func sampleAppointment(id string) models.Appointment {
	clock, _ := models.ParseClock("09:30")
	date, _ := models.ParseDate("2030-07-01")
	a := models.Appointment{
		ServiceType:     "Dental",
		AppointmentTime: clock,
		Status:          models.StatusPending,
		Notes:           "n",
	}
	a.AppointmentDate = datatypes.Date(date)
	a.ID = id
	return a
}

func (s *stubAppointments) Create(_ context.Context, ident services.Identity, in services.CreateAppointmentInput) (*models.Appointment, error) {
	if in.AppointmentDate < "2030-01-01" {
		return nil, apperr.New(apperr.KindPastDate, "appointment_date cannot be in the past")
	}
	s.created = append(s.created, in)
	a := sampleAppointment("appt-1")
	return &a, nil
}

func (s *stubAppointments) List(_ context.Context, ident services.Identity, status string) ([]models.Appointment, error) {
	s.lastList = status
	if status == "BOGUS" {
		return nil, apperr.New(apperr.KindInvalidStatus, "unknown appointment status BOGUS")
	}
	return []models.Appointment{sampleAppointment("appt-1"), sampleAppointment("appt-2")}, nil
}

func (s *stubAppointments) Get(_ context.Context, ident services.Identity, id string) (*models.Appointment, error) {
	if !strings.HasPrefix(id, "appt-1") {
		return nil, apperr.NotFound("appointment not found")
	}
	a := sampleAppointment(id)
	return &a, nil
}

func (s *stubAppointments) Summary(context.Context, services.Identity) (services.Summary, error) {
	return services.Summary{Total: 3, Pending: 1, Completed: 1, Cancelled: 1}, nil
}

func (s *stubAppointments) Delete(_ context.Context, ident services.Identity, id string) error {
	if id != "appt-1" {
		return apperr.NotFound("appointment not found")
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAppointments) UpdateStatus(_ context.Context, ident services.Identity, id string, in services.UpdateStatusInput) (*models.Appointment, error) {
	if !ident.Elevated {
		return nil, apperr.Forbidden("only staff can change appointment status")
	}
	s.updates = append(s.updates, in)
	a := sampleAppointment(id)
	a.Status = models.AppointmentStatus(in.Status)
	return &a, nil
}

type stubPayments struct {
	inputs []services.PayInput
}

func (s *stubPayments) Pay(_ context.Context, ident services.Identity, id string, in services.PayInput) (*models.Payment, error) {
	if _, ok := models.ParsePaymentMethod(in.Method); !ok {
		return nil, apperr.New(apperr.KindInvalidMethod, "payment_method must be MTN or AIRTEL")
	}
	if len(s.inputs) > 0 {
		return nil, apperr.New(apperr.KindAlreadyPaid, "appointment is already paid")
	}
	s.inputs = append(s.inputs, in)
	return &models.Payment{TransactionID: "tx-1", Method: models.MethodMTN, Amount: decimal.RequireFromString("50")}, nil
}

func (s *stubPayments) Receipt(_ context.Context, ident services.Identity, id string) ([]byte, error) {
	if !strings.HasPrefix(id, "appt-1") {
		return nil, apperr.NotFound("no payment recorded for this appointment")
	}
	return []byte("%PDF-1.3 fake"), nil
}

type testServer struct {
	router       *gin.Engine
	accounts     *stubAccounts
	appointments *stubAppointments
	payments     *stubPayments
}

func newTestServer() *testServer {
	ts := &testServer{
		router:       gin.New(),
		accounts:     &stubAccounts{staff: map[string]bool{"doc": true}, revoked: map[string]bool{"jti-revoked": true}},
		appointments: &stubAppointments{},
		payments:     &stubPayments{},
	}
	routes.SetupRoutes(ts.router, routes.Handlers{
		Auth:         handlers.NewAuthHandler(ts.accounts, false, time.Hour),
		Appointments: handlers.NewAppointmentHandler(ts.appointments),
		Payments:     handlers.NewPaymentHandler(ts.payments),
	}, middleware.AuthMiddleware(tokenTable{"alice": true, "doc": true, "revoked": true}, ts.accounts))
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return env
}
