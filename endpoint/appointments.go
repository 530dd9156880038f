package endpoint

import (
	"errors"
	"fmt"

	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/scheduling"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
)

type CreateAppointmentRequest struct {
	UserID         uint    `json:"user_id" example:"0"`
	ProfessionalID uint    `json:"professional_id" binding:"required" example:"1"`
	StartAt        string  `json:"start_at" binding:"required,iso8601" example:"2030-01-15T10:00:00Z"`
	EndAt          string  `json:"end_at" binding:"required,iso8601" example:"2030-01-15T11:00:00Z"`
	Notes          *string `json:"notes"`
}

type UpdateAppointmentRequest struct {
	StartAt *string `json:"start_at" example:"2030-01-15T10:30:00Z"`
	EndAt   *string `json:"end_at" example:"2030-01-15T11:30:00Z"`
	Notes   *string `json:"notes"`
}

// actorOrRespond builds the scheduling actor from the authenticated request.
func actorOrRespond(c *gin.Context) (scheduling.Actor, bool) {
	uid, okID := middleware.GetUserID(c)
	role, okRole := middleware.GetRole(c)
	if !okID || !okRole {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("no identity in context")})
		return scheduling.Actor{}, false
	}
	return scheduling.Actor{UserID: uid, Role: role}, true
}

func schedulingServiceOrRespond(c *gin.Context) (*scheduling.Service, bool) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return nil, false
	}
	return scheduling.NewService(db), true
}

// respondSchedulingError maps scheduling errors onto the API envelope and
// records denials and conflicts in the security log.
func respondSchedulingError(c *gin.Context, err error, operation scheduling.Operation, professionalID uint) {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Not found", Err: err})
	case errors.Is(err, scheduling.ErrBadRequest):
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid appointment request", Err: err})
	case errors.Is(err, scheduling.ErrConflict):
		util.LogBookingConflict(middleware.AccessContext(c), professionalID, err.Error())
		util.CallConflict(c, util.APIErrorParams{Msg: "Appointment conflicts with an existing booking", Err: err})
	case errors.Is(err, scheduling.ErrForbidden):
		util.LogAccessDenied(middleware.AccessContext(c), string(operation), err.Error())
		util.CallForbidden(c, util.APIErrorParams{Msg: "You are not allowed to perform this action", Err: err})
	default:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to process appointment", Err: err})
	}
}

// CreateAppointment godoc
// @Summary      Book an appointment
// @Description  Book a professional over [start_at, end_at). ADMIN and HELPER may book on behalf of another user via user_id.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body CreateAppointmentRequest true "Booking"
// @Success      201 {object} util.APIResponse{data=model.Appointment} "Appointment created"
// @Failure      400 {object} util.APIResponse "Invalid window"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Professional not found or inactive"
// @Failure      409 {object} util.APIResponse "Overlapping appointment"
// @Router       /appointments [post]
func CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid appointment request") {
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	svc, ok := schedulingServiceOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Create(c.Request.Context(), actor, scheduling.CreateInput{
		UserID:         req.UserID,
		ProfessionalID: req.ProfessionalID,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Notes:          req.Notes,
	})
	if err != nil {
		respondSchedulingError(c, err, scheduling.OpCreate, req.ProfessionalID)
		return
	}
	util.CallCreated(c, util.APISuccessParams{Msg: "Appointment created", Data: appt})
}

// ListMyAppointments godoc
// @Summary      List appointments
// @Description  ADMIN and HELPER see every appointment; others see their own and, for professionals, their agenda.
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.Appointment} "Appointments"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /appointments/me [get]
func ListMyAppointments(c *gin.Context) {
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	svc, ok := schedulingServiceOrRespond(c)
	if !ok {
		return
	}
	appts, err := svc.FindMine(c.Request.Context(), actor)
	if err != nil {
		respondSchedulingError(c, err, scheduling.OpListMine, 0)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: appts})
}

// UpdateAppointment godoc
// @Summary      Reschedule an appointment
// @Description  Partially update start_at, end_at or notes. The merged window is checked for conflicts again. A cancelled appointment only accepts notes.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Param        request body UpdateAppointmentRequest true "Patch"
// @Success      200 {object} util.APIResponse{data=model.Appointment} "Appointment updated"
// @Failure      400 {object} util.APIResponse "Invalid window"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      409 {object} util.APIResponse "Overlapping appointment or cancelled appointment moved"
// @Router       /appointments/{id} [patch]
func UpdateAppointment(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	var req UpdateAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid appointment request") {
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	svc, ok := schedulingServiceOrRespond(c)
	if !ok {
		return
	}

	appt, err := svc.Update(c.Request.Context(), actor, id, scheduling.Patch{
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
		Notes:   req.Notes,
	})
	if err != nil {
		respondSchedulingError(c, err, scheduling.OpUpdate, 0)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment updated", Data: appt})
}

// CancelAppointment godoc
// @Summary      Cancel an appointment
// @Description  Mark an appointment CANCELLED. Cancelling twice succeeds.
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Success      200 {object} util.APIResponse{data=model.Appointment} "Appointment cancelled"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Router       /appointments/{id}/cancel [patch]
func CancelAppointment(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	svc, ok := schedulingServiceOrRespond(c)
	if !ok {
		return
	}
	appt, err := svc.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		respondSchedulingError(c, err, scheduling.OpCancel, 0)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment cancelled", Data: appt})
}

// ProfessionalAgenda godoc
// @Summary      Professional agenda
// @Description  Active appointments of a professional with the booking users. ADMIN sees any agenda, HELPER and PROFESSIONAL only their own.
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Professional ID"
// @Success      200 {object} util.APIResponse{data=[]model.Appointment} "Agenda"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Router       /appointments/professional/{id} [get]
func ProfessionalAgenda(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	svc, ok := schedulingServiceOrRespond(c)
	if !ok {
		return
	}
	appts, err := svc.OfProfessional(c.Request.Context(), actor, id)
	if err != nil {
		respondSchedulingError(c, err, scheduling.OpAgenda, id)
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Agenda retrieved", Data: appts})
}
