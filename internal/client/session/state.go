package session

// State is the session's authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	OfflineAuthenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case OfflineAuthenticated:
		return "offline-authenticated"
	default:
		return "unknown"
	}
}

// Event is a one-shot session notification.
type Event int

const (
	// RefreshTokenMissing fires when a refresh was needed but no refresh
	// token was stored. SessionExpired follows it.
	RefreshTokenMissing Event = iota + 1
	// SessionExpired fires whenever the session is cleared.
	SessionExpired
)

func (e Event) String() string {
	switch e {
	case RefreshTokenMissing:
		return "refresh-token-missing"
	case SessionExpired:
		return "session-expired"
	default:
		return "unknown"
	}
}
