package core

import "fmt"

const Version = "0.0.1"

// UserAgent is sent with every request.
var UserAgent = fmt.Sprintf("stravatools/%s", Version)

const DefaultBaseUrl = "https://www.strava.com"

// Endpoints, relative to the base url.
const (
	PathLogin     = "/login"
	PathSession   = "/session"
	PathDashboard = "/dashboard/following/%d"
	PathFeed      = "/dashboard/feed?feed_type=following&athlete_id=%s&before=%s&cursor=%s"
	PathKudo      = "/feed/activity/%s/kudo"
)

const CsrfHeader = "x-csrf-token"

// Markers searched for as plain substrings of a response body.
const (
	LoggedOutMarker = "class='logged-out"
	LoggedInMarker  = "Log Out"
)

// Selectors, these are the parts of the markup the session depends on.
const (
	SelectCsrfMeta    = `meta[name="csrf-token"]`
	SelectLoginUtf8   = `input[name="utf8"]`
	SelectLoginToken  = `input[name="authenticity_token"]`
	SelectProfile     = "div.athlete-profile"
	SelectProfileLink = "a"
	SelectProfileName = "div.athlete-name"
)
