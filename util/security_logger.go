package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fernanda-avila/MIndCare2025/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SecurityEventType represents different types of security events
type SecurityEventType string

const (
	EventLoginSuccess       SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailure       SecurityEventType = "LOGIN_FAILURE"
	EventRegisterSuccess    SecurityEventType = "REGISTER_SUCCESS"
	EventLogout             SecurityEventType = "LOGOUT"
	EventAccountLocked      SecurityEventType = "ACCOUNT_LOCKED"
	EventPasswordChanged    SecurityEventType = "PASSWORD_CHANGED"
	EventUnauthorizedAccess SecurityEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  SecurityEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity SecurityEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       SecurityEventType = "ENDPOINT_CALL"
	EventAccessDenied       SecurityEventType = "ACCESS_DENIED"
	EventBookingConflict    SecurityEventType = "BOOKING_CONFLICT"
	EventRegistrationReview SecurityEventType = "REGISTRATION_REVIEW"
	EventRoleChanged        SecurityEventType = "ROLE_CHANGED"
)

// SecurityEvent represents a security event to be logged
type SecurityEvent struct {
	EventType SecurityEventType
	UserID    string
	Role      string
	Email     string
	IP        string
	UserAgent string
	RequestID string
	Message   string
	Details   map[string]interface{}
}

var securityLogger *log.Logger
var securityDB *gorm.DB

// SetSecurityLoggerDB sets a gorm DB instance used by the security logger.
// Call this during application startup (e.g. in main) after DB initialization.
func SetSecurityLoggerDB(db *gorm.DB) {
	securityDB = db
}

func init() {
	securityLogger = log.New(os.Stdout, "[SECURITY] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and tabs and truncates long values
func sanitizeLogValue(value string) string {
	value = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(value)
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogSecurityEvent logs a security event
func LogSecurityEvent(event SecurityEvent) {
	msg := fmt.Sprintf("Event=%s UserID=%s Role=%s Email=%s IP=%s UserAgent=%s RequestID=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Role),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.RequestID),
		sanitizeLogValue(event.Message),
	)

	// Details stay out of the text line; they are only persisted as JSON.
	if len(event.Details) > 0 {
		msg = fmt.Sprintf("%s DetailsCount=%d", msg, len(event.Details))
	}

	securityLogger.Println(msg)

	// Persisting is best effort and never fails the request.
	if securityDB != nil {
		var details datatypes.JSON
		if event.Details != nil {
			if b, err := json.Marshal(event.Details); err == nil {
				details = datatypes.JSON(b)
			}
		}

		city, country := GetIPLocation(event.IP)
		var location string
		if city != "" && country != "" {
			location = fmt.Sprintf("%s/%s", city, country)
		} else if country != "" {
			location = country
		} else if city != "" {
			location = city
		}

		entry := model.SecurityLog{
			EventType: string(event.EventType),
			UserID:    event.UserID,
			Role:      sanitizeLogValue(event.Role),
			Email:     sanitizeLogValue(event.Email),
			IP:        sanitizeLogValue(event.IP),
			RequestID: sanitizeLogValue(event.RequestID),
			Location:  sanitizeLogValue(location),
			UserAgent: sanitizeLogValue(event.UserAgent),
			Message:   sanitizeLogValue(event.Message),
			Details:   details,
		}

		if err := securityDB.Create(&entry).Error; err != nil {
			securityLogger.Printf("Failed to persist security event: %v", err)
		}
	}
}

// LogLoginSuccess logs a successful login event
func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt
func LogLoginFailure(email, ip, userAgent, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogLogout logs a logout event
func LogLogout(userID uint, email, ip, userAgent string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventLogout,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

// LogAccountLocked logs when an account is locked
func LogAccountLocked(userID uint, email, ip string, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAccountLocked,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Account locked: %s", reason),
	})
}

// LogUnauthorizedAccess logs requests rejected for a missing or invalid session
func LogUnauthorizedAccess(ip, resource, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventUnauthorizedAccess,
		IP:        ip,
		Message:   fmt.Sprintf("Unauthorized access to %s: %s", resource, reason),
	})
}

// AccessContext identifies who attempted an operation and from where.
type AccessContext struct {
	UserID    uint
	Role      string
	IP        string
	RequestID string
}

// LogAccessDenied logs an authenticated caller being refused an operation
func LogAccessDenied(ac AccessContext, operation, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventAccessDenied,
		UserID:    fmt.Sprintf("%d", ac.UserID),
		Role:      ac.Role,
		IP:        ac.IP,
		RequestID: ac.RequestID,
		Message:   fmt.Sprintf("Access denied for %s: %s", operation, reason),
		Details:   map[string]interface{}{"operation": operation},
	})
}

// LogBookingConflict logs a booking rejected because its window is taken
func LogBookingConflict(ac AccessContext, professionalID uint, reason string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventBookingConflict,
		UserID:    fmt.Sprintf("%d", ac.UserID),
		Role:      ac.Role,
		IP:        ac.IP,
		RequestID: ac.RequestID,
		Message:   reason,
		Details:   map[string]interface{}{"professional_id": professionalID},
	})
}

// LogRegistrationReview logs an administrator approving or rejecting a professional
func LogRegistrationReview(ac AccessContext, professionalID uint, status string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRegistrationReview,
		UserID:    fmt.Sprintf("%d", ac.UserID),
		Role:      ac.Role,
		IP:        ac.IP,
		RequestID: ac.RequestID,
		Message:   fmt.Sprintf("Professional %d marked %s", professionalID, status),
		Details:   map[string]interface{}{"professional_id": professionalID, "status": status},
	})
}

// LogRateLimitExceeded logs when rate limit is exceeded
func LogRateLimitExceeded(email, ip, endpoint string) {
	LogSecurityEvent(SecurityEvent{
		EventType: EventRateLimitExceeded,
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for endpoint: %s", endpoint),
	})
}

// GetSecurityLoggerForTest returns the current security logger for testing purposes
func GetSecurityLoggerForTest() *log.Logger {
	return securityLogger
}

// SetSecurityLoggerForTest sets a custom logger for testing purposes
func SetSecurityLoggerForTest(logger *log.Logger) {
	securityLogger = logger
}
