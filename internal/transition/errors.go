package transition

import (
	"errors"

	"github.com/steveyegge/kanbeads/internal/types"
)

// DeniedError is returned when a move is refused. Its message is the
// localized reason shown to the user.
type DeniedError struct {
	CardID    types.ID
	CardTitle string
	Target    types.ID
	Verdict   Verdict
}

func (e *DeniedError) Error() string {
	return e.Verdict.Reason
}

// IsDenied reports whether err is a refused move and returns it.
func IsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
