package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service validates and persists appointments. Every check-then-write runs
// in one transaction holding row locks on the professional and the booking
// user, taken in that order.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput is a booking request. StartAt and EndAt are ISO-8601 strings.
// UserID books on behalf of another user and is only honored for roles the
// policy lets act on any appointment; zero means the actor.
type CreateInput struct {
	UserID         uint
	ProfessionalID uint
	StartAt        string
	EndAt          string
	Notes          *string
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	StartAt *string
	EndAt   *string
	Notes   *string
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// normalizeInstant keeps millisecond precision so stored and compared values agree
// on every driver.
func normalizeInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := util.ParseInstant(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, badRequest("start_at: %v", err)
	}
	end, err := util.ParseInstant(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, badRequest("end_at: %v", err)
	}
	return checkWindow(normalizeInstant(start), normalizeInstant(end))
}

func checkWindow(start, end time.Time) (time.Time, time.Time, error) {
	if !start.Before(end) {
		return time.Time{}, time.Time{}, badRequest("start_at must be before end_at")
	}
	return start, end, nil
}

// overlapQuery selects active appointments where column=id intersecting
// [start, end). excludeID skips the appointment being updated. It is a locking
// read, so under REPEATABLE READ it sees rows committed after the snapshot.
func overlapQuery(tx *gorm.DB, column string, id uint, start, end time.Time, excludeID uint) *gorm.DB {
	q := forUpdate(tx).Model(&model.Appointment{}).
		Where(column+" = ?", id).
		Where("status <> ?", model.AppointmentCancelled).
		Where("start_at < ? AND end_at > ?", end, start)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q.Limit(1)
}

func hasOverlap(tx *gorm.DB, column string, id uint, start, end time.Time, excludeID uint) (bool, error) {
	var ids []uint
	if err := overlapQuery(tx, column, id, start, end, excludeID).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func checkAvailability(tx *gorm.DB, professionalID, userID uint, start, end time.Time, excludeID uint) error {
	busy, err := hasOverlap(tx, "professional_id", professionalID, start, end, excludeID)
	if err != nil {
		return err
	}
	if busy {
		return conflict("professional already has an appointment in this window")
	}
	busy, err = hasOverlap(tx, "user_id", userID, start, end, excludeID)
	if err != nil {
		return err
	}
	if busy {
		return conflict("user already has an appointment in this window")
	}
	return nil
}

// lockParticipants locks the professional and then the user row. It returns
// the professional so callers can check activity and ownership.
func lockParticipants(tx *gorm.DB, professionalID, userID uint) (model.Professional, error) {
	var pro model.Professional
	if err := forUpdate(tx).First(&pro, professionalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pro, notFound("professional %d not found", professionalID)
		}
		return pro, err
	}
	var user model.User
	if err := forUpdate(tx).Select("id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pro, notFound("user %d not found", userID)
		}
		return pro, err
	}
	return pro, nil
}

func cleanNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Create books a new appointment with status SCHEDULED.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*model.Appointment, error) {
	ownerID := in.UserID
	if ownerID == 0 {
		ownerID = actor.UserID
	}
	if err := Authorize(OpCreate, actor, Resource{OwnerUserID: ownerID}); err != nil {
		return nil, err
	}
	if in.ProfessionalID == 0 {
		return nil, badRequest("professional_id is required")
	}
	start, end, err := parseWindow(in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}

	appt := model.Appointment{
		UserID:         ownerID,
		ProfessionalID: in.ProfessionalID,
		StartAt:        start,
		EndAt:          end,
		Status:         model.AppointmentScheduled,
		Notes:          cleanNotes(in.Notes),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pro, err := lockParticipants(tx, in.ProfessionalID, ownerID)
		if err != nil {
			return err
		}
		if !pro.Active {
			return notFound("professional %d is not accepting appointments", pro.ID)
		}
		if err := checkAvailability(tx, pro.ID, ownerID, start, end, 0); err != nil {
			return err
		}
		return tx.Create(&appt).Error
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return s.load(ctx, appt.ID)
}

// Update applies a partial patch. The merged window is re-validated and
// re-checked against both the professional's and the owner's bookings,
// ignoring the appointment itself. A cancelled appointment only takes notes.
func (s *Service) Update(ctx context.Context, actor Actor, id uint, patch Patch) (*model.Appointment, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Appointment
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("appointment %d not found", id)
			}
			return err
		}

		var pro model.Professional
		if err := tx.Unscoped().Select("id", "user_id").First(&pro, current.ProfessionalID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := Authorize(OpUpdate, actor, Resource{OwnerUserID: current.UserID, ProfessionalUserID: pro.UserID}); err != nil {
			return err
		}

		start, end := current.StartAt, current.EndAt
		if patch.StartAt != nil {
			t, err := util.ParseInstant(*patch.StartAt)
			if err != nil {
				return badRequest("start_at: %v", err)
			}
			start = normalizeInstant(t)
		}
		if patch.EndAt != nil {
			t, err := util.ParseInstant(*patch.EndAt)
			if err != nil {
				return badRequest("end_at: %v", err)
			}
			end = normalizeInstant(t)
		}
		start, end, err := checkWindow(start, end)
		if err != nil {
			return err
		}

		if _, err := lockParticipants(tx, current.ProfessionalID, current.UserID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := forUpdate(tx).First(&current, id).Error; err != nil {
			return err
		}
		if current.Status == model.AppointmentCancelled {
			if patch.StartAt != nil || patch.EndAt != nil {
				return conflict("appointment %d is cancelled", id)
			}
			if patch.Notes == nil {
				return nil
			}
			return tx.Model(&current).Update("notes", cleanNotes(patch.Notes)).Error
		}
		if err := checkAvailability(tx, current.ProfessionalID, current.UserID, start, end, current.ID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"start_at": start,
			"end_at":   end,
		}
		if patch.Notes != nil {
			updates["notes"] = cleanNotes(patch.Notes)
		}
		return tx.Model(&current).Updates(updates).Error
	})
	if err != nil {
		return nil, translateStoreError(err)
	}
	return s.load(ctx, id)
}

// Cancel marks an appointment CANCELLED. Ownership is enforced by the WHERE
// clause itself; a miss is then told apart as NotFound or Forbidden.
// Cancelling twice succeeds.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uint) (*model.Appointment, error) {
	if !actor.valid() {
		return nil, forbidden("unauthenticated actor")
	}
	rule := RuleFor(OpCancel, actor.Role)
	if !rule.Allowed {
		return nil, forbidden("role %s may not perform %s", actor.Role, OpCancel)
	}

	db := s.db.WithContext(ctx)
	q := db.Model(&model.Appointment{}).Where("id = ?", id)
	if rule.Ownership != OwnAny {
		q = q.Where("user_id = ?", actor.UserID)
	}
	res := q.Updates(map[string]interface{}{
		"status":     model.AppointmentCancelled,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, translateStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		var existing model.Appointment
		if err := db.Select("id", "user_id", "status").First(&existing, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFound("appointment %d not found", id)
			}
			return nil, err
		}
		if rule.Ownership != OwnAny && existing.UserID != actor.UserID {
			return nil, forbidden("appointment %d belongs to another user", id)
		}
	}
	return s.load(ctx, id)
}

// FindMine lists the appointments visible to the actor, earliest first.
// ADMIN and HELPER see every appointment.
func (s *Service) FindMine(ctx context.Context, actor Actor) ([]model.Appointment, error) {
	if !actor.valid() {
		return nil, forbidden("unauthenticated actor")
	}
	rule := RuleFor(OpListMine, actor.Role)
	if !rule.Allowed {
		return nil, forbidden("role %s may not perform %s", actor.Role, OpListMine)
	}

	q := s.db.WithContext(ctx).Preload("Professional").Preload("User")
	switch rule.Ownership {
	case OwnAny:
	case OwnAppointmentOrLinkedProfessional:
		linked := s.db.Model(&model.Professional{}).Select("id").Where("user_id = ?", actor.UserID)
		q = q.Where("user_id = ? OR professional_id IN (?)", actor.UserID, linked)
	default:
		q = q.Where("user_id = ?", actor.UserID)
	}

	var appts []model.Appointment
	if err := q.Order("start_at ASC").Order("id ASC").Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

// OfProfessional returns a professional's active agenda, earliest first,
// with each booking user's id, name and email.
func (s *Service) OfProfessional(ctx context.Context, actor Actor, professionalID uint) ([]model.Appointment, error) {
	db := s.db.WithContext(ctx)
	var pro model.Professional
	if err := db.Select("id", "user_id").First(&pro, professionalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("professional %d not found", professionalID)
		}
		return nil, err
	}
	if err := Authorize(OpAgenda, actor, Resource{ProfessionalUserID: pro.UserID}); err != nil {
		return nil, err
	}

	var appts []model.Appointment
	err := db.Preload("User").
		Where("professional_id = ? AND status <> ?", professionalID, model.AppointmentCancelled).
		Order("start_at ASC").Order("id ASC").
		Find(&appts).Error
	if err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *Service) load(ctx context.Context, id uint) (*model.Appointment, error) {
	var appt model.Appointment
	if err := s.db.WithContext(ctx).Preload("Professional").Preload("User").First(&appt, id).Error; err != nil {
		return nil, translateStoreError(err)
	}
	return &appt, nil
}
