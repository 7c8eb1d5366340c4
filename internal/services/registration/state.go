package registration

import (
	"time"

	"github.com/mcoot/dotareg/internal/model"
)

// Evaluate computes the state of a session at now given its player count.
// The countdown target is the start while pending, the expiry while open and
// nil once closed.
func Evaluate(session *model.RegistrationSession, playerCount int, now time.Time) (model.RegistrationState, *time.Time) {
	switch {
	case session.ClosedAt != nil:
		return model.RegistrationClosed, nil
	case session.Expiry != nil && !now.Before(*session.Expiry):
		return model.RegistrationClosed, nil
	case session.MaxPlayers != nil && playerCount >= *session.MaxPlayers:
		return model.RegistrationClosed, nil
	case session.StartTime != nil && now.Before(*session.StartTime):
		return model.RegistrationPending, session.StartTime
	default:
		return model.RegistrationOpen, session.Expiry
	}
}
