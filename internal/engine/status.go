package engine

// Status strings exposed for display. These are the engine's entire error
// surface: operations never return errors, they land on one of these.
const (
	StatusNotConfigured    = "not configured"
	StatusSignedOut        = "configured (signed out)"
	StatusSigningIn        = "signing in…"
	StatusCreatingAccount  = "creating account…"
	StatusSigningOut       = "signing out…"
	StatusConnected        = "connected"
	StatusRealtime         = "connected (realtime)"
	StatusSaved            = "connected (saved)"
	StatusUpToDate         = "connected (up to date)"
	StatusPushing          = "pushing…"
	StatusPulling          = "pulling…"
	StatusCloudEmpty       = "cloud empty (push first)"
	StatusSignInFirst      = "sign in first"
	StatusEnterEmail       = "enter email"
	StatusEnterPassword    = "enter password"
	StatusConfirmEmail     = "check your email to confirm"
	StatusLoggedOut        = "signed out"
)

const (
	statusUpdatedFromPrefix = "updated from "
	statusErrorPrefix       = "error: "
)
