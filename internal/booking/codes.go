package booking

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 5
)

// randomBookingID builds an id of the form APPT-<YYYYMMDD>-<4 digits>,
// date-stamped with the creation day.
func randomBookingID(now time.Time) string {
	return fmt.Sprintf("APPT-%s-%04d", now.Format("20060102"), rand.Intn(10000))
}

// randomConfirmationCode returns 6 uppercase-alphanumeric characters.
func randomConfirmationCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// newBookingID generates an id and verifies it is unused, retrying a
// bounded number of times. Four random digits per day collide rarely,
// but an unchecked collision would silently merge two patients'
// records.
func newBookingID(ctx context.Context, repo Repository, now time.Time) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := randomBookingID(now)
		exists, err := repo.BookingIDExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check booking id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique booking id after %d attempts", maxCodeAttempts)
}
