package endpoint

import (
	"testing"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActiveProfessionalsCachesUntilInvalidated(t *testing.T) {
	db := newTestDB(t)
	createProfessional(t, db, model.RegistrationApproved, nil)
	createProfessional(t, db, model.RegistrationPending, nil)

	pros, err := listActiveProfessionals(db)
	require.NoError(t, err)
	require.Len(t, pros, 1)

	// Written behind the cache's back: still served from the cache.
	createProfessional(t, db, model.RegistrationApproved, nil)
	pros, err = listActiveProfessionals(db)
	require.NoError(t, err)
	assert.Len(t, pros, 1)

	invalidateProfessionalList()
	pros, err = listActiveProfessionals(db)
	require.NoError(t, err)
	assert.Len(t, pros, 2)
}

func TestListActiveProfessionalsOrderedByName(t *testing.T) {
	db := newTestDB(t)
	for _, name := range []string{"Carla", "Ana", "Bruno"} {
		require.NoError(t, db.Create(&model.Professional{Name: name, Active: true, RegistrationStatus: model.RegistrationApproved}).Error)
	}

	pros, err := listActiveProfessionals(db)
	require.NoError(t, err)
	require.Len(t, pros, 3)
	assert.Equal(t, []string{"Ana", "Bruno", "Carla"}, []string{pros[0].Name, pros[1].Name, pros[2].Name})
}
