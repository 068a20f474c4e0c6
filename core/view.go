package core

// GuardState is the state of the admin session guard
type GuardState string

const (
	GuardChecking        GuardState = "checking"
	GuardAuthenticated   GuardState = "authenticated"
	GuardUnauthenticated GuardState = "unauthenticated"
	GuardUnavailable     GuardState = "unavailable"
)

// GateState is the state of the public initiation gate
type GateState string

const (
	GateChecking    GateState = "checking"
	GateInitiated   GateState = "initiated"
	GateUninitiated GateState = "uninitiated"
)

// ViewKind is what a guard asks its host to render
type ViewKind string

const (
	ViewLoading  ViewKind = "loading"
	ViewRedirect ViewKind = "redirect"
	ViewRetry    ViewKind = "retry"
	ViewChildren ViewKind = "children"
)

// Entry points guards redirect to
const (
	LoginPath    = "/admin/login"
	InitiatePath = "/admin/initiate"
)

// Message keys rendered by the guards
const (
	MessageSessionUnavailable = "auth.session.unavailable"
	MessageSessionExpired     = "auth.session.expired"
)

// View is a guard's render decision
type View struct {
	Kind    ViewKind
	Target  string // redirect destination
	Message string // retry explanation
}
