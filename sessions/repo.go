package sessions

import (
	"context"
	"time"

	apperrors "github.com/jrsteele09/incal-auth/internal/errors"
)

// ErrNotFound is returned for unknown and expired sessions.
var ErrNotFound = apperrors.ErrSessionNotFound

type Repo interface {
	Get(ctx context.Context, id string) (*ConsentSession, error)
	Save(ctx context.Context, session *ConsentSession) error
	Delete(ctx context.Context, id string) error
	// ConsumeCSRF atomically removes the session's outstanding CSRF token and
	// reports whether it matched value and was unexpired at now. Of several
	// concurrent callers at most one sees true.
	ConsumeCSRF(ctx context.Context, id, value string, now time.Time) (bool, error)
}
