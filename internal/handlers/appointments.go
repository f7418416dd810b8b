package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/services"
	"clinic-booking-server/internal/utils"
)

// AppointmentService is the appointment behaviour the handlers depend on.
type AppointmentService interface {
	Create(ctx context.Context, ident services.Identity, in services.CreateAppointmentInput) (*models.Appointment, error)
	List(ctx context.Context, ident services.Identity, status string) ([]models.Appointment, error)
	Get(ctx context.Context, ident services.Identity, id string) (*models.Appointment, error)
	Summary(ctx context.Context, ident services.Identity) (services.Summary, error)
	Delete(ctx context.Context, ident services.Identity, id string) error
	UpdateStatus(ctx context.Context, ident services.Identity, id string, in services.UpdateStatusInput) (*models.Appointment, error)
}

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	appointments AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(appointments AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// AppointmentResponse is the representation of an appointment sent to
// callers.
type AppointmentResponse struct {
	ID              string    `json:"id"`
	ServiceType     string    `json:"service_type"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	IsPaid          bool      `json:"is_paid"`
	PaymentMethod   string    `json:"payment_method,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAppointmentResponse(a models.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		ServiceType:     a.ServiceType,
		AppointmentDate: a.DateString(),
		AppointmentTime: a.TimeString(),
		Status:          string(a.Status),
		Notes:           a.Notes,
		IsPaid:          a.IsPaid,
		PaymentMethod:   string(a.PaymentMethod),
		CreatedAt:       a.CreatedAt,
	}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	ServiceType     string  `json:"service_type" validate:"required,max=100"`
	AppointmentDate string  `json:"appointment_date" validate:"required"`
	AppointmentTime string  `json:"appointment_time" validate:"required"`
	Notes           *string `json:"notes"`
}

// CreateAppointment books an appointment for the caller.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.appointments.Create(c.Request.Context(), ident, services.CreateAppointmentInput{
		ServiceType:     req.ServiceType,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Notes:           req.Notes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", gin.H{"appointment_id": appt.ID})
}

// ListAppointments returns the appointments visible to the caller.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	list, err := h.appointments.List(c.Request.Context(), ident, c.Query("status"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", gin.H{
		"appointments": lo.Map(list, func(a models.Appointment, _ int) AppointmentResponse {
			return toAppointmentResponse(a)
		}),
	})
}

// GetAppointmentByID returns one appointment owned by the caller, or any
// appointment for staff.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	appt, err := h.appointments.Get(c.Request.Context(), ident, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", toAppointmentResponse(*appt))
}

// GetSummary counts the caller's visible appointments by status.
func (h *AppointmentHandler) GetSummary(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	sum, err := h.appointments.Summary(c.Request.Context(), ident)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment summary fetched successfully", sum)
}

// DeleteAppointment removes one of the caller's own appointments.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}

	if err := h.appointments.Delete(c.Request.Context(), ident, c.Param("id")); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

// UpdateAppointmentStatus moves an appointment along its workflow.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	ident, ok := middleware.MustIdentity(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.appointments.UpdateStatus(c.Request.Context(), ident, c.Param("id"), services.UpdateStatusInput{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment status updated successfully", toAppointmentResponse(*appt))
}
