package endpoint

// Test hooks for the external endpoint_test package.
var (
	NewTestDB                  = newTestDB
	ResetProfessionalListCache = invalidateProfessionalList
)
