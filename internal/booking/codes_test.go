package booking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomBookingID(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.Local)
	pattern := regexp.MustCompile(`^APPT-20260907-\d{4}$`)

	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, randomBookingID(now))
	}
}

func TestRandomConfirmationCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	for i := 0; i < 50; i++ {
		assert.Regexp(t, pattern, randomConfirmationCode())
	}
}

type existsRepo struct {
	memRepo
	exists func(id string) (bool, error)
	checks int
}

func (r *existsRepo) BookingIDExists(ctx context.Context, id string) (bool, error) {
	r.checks++
	return r.exists(id)
}

func TestNewBookingIDFirstTry(t *testing.T) {
	repo := &existsRepo{exists: func(string) (bool, error) { return false, nil }}

	id, err := newBookingID(context.Background(), repo, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, repo.checks)
}

func TestNewBookingIDRetriesThenGivesUp(t *testing.T) {
	repo := &existsRepo{exists: func(string) (bool, error) { return true, nil }}

	_, err := newBookingID(context.Background(), repo, time.Now())
	assert.Error(t, err)
	assert.Equal(t, maxCodeAttempts, repo.checks)
}

func TestNewBookingIDRecoversFromCollision(t *testing.T) {
	collisions := 2
	repo := &existsRepo{}
	repo.exists = func(string) (bool, error) {
		if repo.checks <= collisions {
			return true, nil
		}
		return false, nil
	}

	id, err := newBookingID(context.Background(), repo, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, collisions+1, repo.checks)
}
