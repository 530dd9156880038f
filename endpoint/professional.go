package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/scheduling"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const activeProfessionalsKey = "professionals:active"

var (
	professionalCache = cache.New(time.Minute, 5*time.Minute)
	professionalGroup singleflight.Group
)

// invalidateProfessionalList drops the cached public listing after any
// professional row changes.
func invalidateProfessionalList() {
	professionalCache.Delete(activeProfessionalsKey)
}

// listActiveProfessionals serves the public listing from the in-process cache.
// Concurrent misses share one query.
func listActiveProfessionals(db *gorm.DB) ([]model.Professional, error) {
	if v, ok := professionalCache.Get(activeProfessionalsKey); ok {
		if pros, ok := v.([]model.Professional); ok {
			return pros, nil
		}
	}
	v, err, _ := professionalGroup.Do(activeProfessionalsKey, func() (interface{}, error) {
		var pros []model.Professional
		if err := db.Where("active = ?", true).Order("name ASC").Order("id ASC").Find(&pros).Error; err != nil {
			return nil, err
		}
		professionalCache.SetDefault(activeProfessionalsKey, pros)
		return pros, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Professional), nil
}

type CreateProfessionalRequest struct {
	UserID    *uint  `json:"user_id" example:"7"`
	Name      string `json:"name" binding:"required" example:"Dra. Ana Costa"`
	Specialty string `json:"specialty" example:"Psicologia clínica"`
	Bio       string `json:"bio"`
	CRP       string `json:"crp" example:"06/123456"`
	AvatarURL string `json:"avatar_url"`
}

type UpdateProfessionalRequest struct {
	Name      *string `json:"name"`
	Specialty *string `json:"specialty"`
	Bio       *string `json:"bio"`
	CRP       *string `json:"crp"`
	AvatarURL *string `json:"avatar_url"`
	Active    *bool   `json:"active"`
}

func fetchProfessionalOrRespond(c *gin.Context, db *gorm.DB, id uint) (*model.Professional, bool) {
	var pro model.Professional
	if err := db.First(&pro, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Professional not found", Err: err})
			return nil, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve professional", Err: err})
		return nil, false
	}
	return &pro, true
}

// propagateAvatar copies the professional's avatar to the linked user. It is
// best effort and only logs failures.
func propagateAvatar(c *gin.Context, db *gorm.DB, pro *model.Professional) {
	if pro.UserID == nil || pro.AvatarURL == "" {
		return
	}
	err := db.Model(&model.User{}).Where("id = ?", *pro.UserID).Update("avatar_url", pro.AvatarURL).Error
	if err != nil {
		util.LogSecurityEvent(util.SecurityEvent{
			EventType: util.EventSuspiciousActivity,
			UserID:    fmt.Sprintf("%d", *pro.UserID),
			IP:        c.ClientIP(),
			RequestID: middleware.GetRequestID(c),
			Message:   fmt.Sprintf("Failed to propagate avatar of professional %d: %v", pro.ID, err),
		})
	}
}

// ListProfessionals godoc
// @Summary      List professionals
// @Description  Public list of active professionals
// @Tags         Professionals
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]model.Professional} "Professionals"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /professionals [get]
func ListProfessionals(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	pros, err := listActiveProfessionals(db)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve professionals", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Professionals retrieved", Data: pros})
}

// GetProfessional godoc
// @Summary      Get professional
// @Tags         Professionals
// @Produce      json
// @Param        id path int true "Professional ID"
// @Success      200 {object} util.APIResponse{data=model.Professional} "Professional"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Router       /professionals/{id} [get]
func GetProfessional(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	pro, ok := fetchProfessionalOrRespond(c, db, id)
	if !ok {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Professional retrieved", Data: pro})
}

// CreateProfessional godoc
// @Summary      Create professional
// @Description  ADMIN creates an approved, active profile for any user. A HELPER's profile is linked to the helper and waits for review.
// @Tags         Professionals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        request body CreateProfessionalRequest true "Professional"
// @Success      201 {object} util.APIResponse{data=model.Professional} "Professional created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      409 {object} util.APIResponse "User already has a professional profile"
// @Router       /professionals [post]
func CreateProfessional(c *gin.Context) {
	var req CreateProfessionalRequest
	if !bindJSONOrRespond(c, &req, "Invalid professional payload") {
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	pro := model.Professional{
		UserID:             req.UserID,
		Name:               util.NormalizeName(req.Name),
		Specialty:          strings.TrimSpace(req.Specialty),
		Bio:                strings.TrimSpace(req.Bio),
		CRP:                strings.TrimSpace(req.CRP),
		AvatarURL:          strings.TrimSpace(req.AvatarURL),
		Active:             true,
		RegistrationStatus: model.RegistrationApproved,
	}
	if actor.Role != model.RoleAdmin {
		self := actor.UserID
		pro.UserID = &self
		pro.Active = false
		pro.RegistrationStatus = model.RegistrationPending
	}

	if pro.UserID != nil {
		var count int64
		if err := db.Model(&model.User{}).Where("id = ?", *pro.UserID).Count(&count).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify user", Err: err})
			return
		}
		if count == 0 {
			util.CallUserError(c, util.APIErrorParams{Msg: "Linked user does not exist", Err: fmt.Errorf("user %d not found", *pro.UserID)})
			return
		}
		if err := db.Unscoped().Model(&model.Professional{}).Where("user_id = ?", *pro.UserID).Count(&count).Error; err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to verify professional", Err: err})
			return
		}
		if count > 0 {
			util.CallConflict(c, util.APIErrorParams{Msg: "User already has a professional profile", Err: fmt.Errorf("user %d already linked", *pro.UserID)})
			return
		}
	}

	if err := db.Create(&pro).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create professional", Err: err})
		return
	}
	propagateAvatar(c, db, &pro)
	invalidateProfessionalList()

	util.CallCreated(c, util.APISuccessParams{Msg: "Professional created", Data: pro})
}

// UpdateProfessional godoc
// @Summary      Update professional
// @Description  ADMIN updates any profile, a HELPER only the profile linked to them. Only ADMIN may change active.
// @Tags         Professionals
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Professional ID"
// @Param        request body UpdateProfessionalRequest true "Changes"
// @Success      200 {object} util.APIResponse{data=model.Professional} "Professional updated"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Router       /professionals/{id} [patch]
func UpdateProfessional(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	var req UpdateProfessionalRequest
	if !bindJSONOrRespond(c, &req, "Invalid professional payload") {
		return
	}
	actor, ok := actorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	pro, ok := fetchProfessionalOrRespond(c, db, id)
	if !ok {
		return
	}

	if err := scheduling.Authorize(scheduling.OpProfessionalUpdate, actor, scheduling.Resource{ProfessionalUserID: pro.UserID}); err != nil {
		respondSchedulingError(c, err, scheduling.OpProfessionalUpdate, pro.ID)
		return
	}
	if req.Active != nil && actor.Role != model.RoleAdmin {
		util.LogAccessDenied(middleware.AccessContext(c), string(scheduling.OpProfessionalUpdate), "only ADMIN may change active")
		util.CallForbidden(c, util.APIErrorParams{Msg: "Only an administrator can change availability", Err: fmt.Errorf("active is admin-only")})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := util.NormalizeName(*req.Name)
		if name == "" {
			util.CallUserError(c, util.APIErrorParams{Msg: "Name cannot be empty", Err: fmt.Errorf("empty name")})
			return
		}
		updates["name"] = name
	}
	if req.Specialty != nil {
		updates["specialty"] = strings.TrimSpace(*req.Specialty)
	}
	if req.Bio != nil {
		updates["bio"] = strings.TrimSpace(*req.Bio)
	}
	if req.CRP != nil {
		updates["crp"] = strings.TrimSpace(*req.CRP)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "No fields to update", Err: fmt.Errorf("empty patch")})
		return
	}

	if err := db.Model(pro).Updates(updates).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update professional", Err: err})
		return
	}
	if err := db.First(pro, pro.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reload professional", Err: err})
		return
	}
	if req.AvatarURL != nil {
		propagateAvatar(c, db, pro)
	}
	invalidateProfessionalList()

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Professional updated", Data: pro})
}

// DeleteProfessional godoc
// @Summary      Delete professional
// @Description  Soft-delete a professional. Existing appointments are kept.
// @Tags         Professionals
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Professional ID"
// @Success      200 {object} util.APIResponse "Professional deleted"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Router       /professionals/{id} [delete]
func DeleteProfessional(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	res := db.Delete(&model.Professional{}, id)
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete professional", Err: res.Error})
		return
	}
	if res.RowsAffected == 0 {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Professional not found", Err: gorm.ErrRecordNotFound})
		return
	}
	invalidateProfessionalList()
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Professional deleted"})
}

// ListPendingProfessionals godoc
// @Summary      Pending registrations
// @Description  Professional profiles waiting for review, oldest first
// @Tags         Professionals
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.Professional} "Pending professionals"
// @Router       /professionals/requests/pending [get]
func ListPendingProfessionals(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var pros []model.Professional
	if err := db.Where("registration_status = ?", model.RegistrationPending).Order("created_at ASC").Order("id ASC").Find(&pros).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve pending professionals", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Pending professionals retrieved", Data: pros})
}

// reviewProfessional applies a registration decision under a row lock so two
// reviewers cannot both move the same request out of PENDING.
func reviewProfessional(c *gin.Context, decide func(*model.Professional) error) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var pro model.Professional
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&pro, id).Error; err != nil {
			return err
		}
		if err := decide(&pro); err != nil {
			return err
		}
		return tx.Model(&pro).Updates(map[string]interface{}{
			"registration_status": pro.RegistrationStatus,
			"active":              pro.Active,
		}).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Professional not found", Err: err})
		return
	case errors.Is(err, model.ErrInvalidTransition):
		util.CallConflict(c, util.APIErrorParams{Msg: "Registration was already reviewed", Err: err})
		return
	case err != nil:
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to review professional", Err: err})
		return
	}

	if pro.RegistrationStatus == model.RegistrationApproved {
		propagateAvatar(c, db, &pro)
	}
	invalidateProfessionalList()
	util.LogRegistrationReview(middleware.AccessContext(c), pro.ID, string(pro.RegistrationStatus))
	util.CallSuccessOK(c, util.APISuccessParams{Msg: fmt.Sprintf("Professional %s", strings.ToLower(string(pro.RegistrationStatus))), Data: pro})
}

// ApproveProfessional godoc
// @Summary      Approve registration
// @Description  Move a PENDING professional to APPROVED and activate it
// @Tags         Professionals
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Professional ID"
// @Success      200 {object} util.APIResponse{data=model.Professional} "Professional approved"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Failure      409 {object} util.APIResponse "Already reviewed"
// @Router       /professionals/{id}/approve [post]
func ApproveProfessional(c *gin.Context) {
	reviewProfessional(c, (*model.Professional).Approve)
}

// RejectProfessional godoc
// @Summary      Reject registration
// @Description  Move a PENDING professional to REJECTED and deactivate it
// @Tags         Professionals
// @Produce      json
// @Security     BearerAuth
// @Security     SessionToken
// @Param        id path int true "Professional ID"
// @Success      200 {object} util.APIResponse{data=model.Professional} "Professional rejected"
// @Failure      404 {object} util.APIResponse "Professional not found"
// @Failure      409 {object} util.APIResponse "Already reviewed"
// @Router       /professionals/{id}/reject [post]
func RejectProfessional(c *gin.Context) {
	reviewProfessional(c, (*model.Professional).Reject)
}
