package auth

// Known OAuth scopes used by the sync API.
const (
	ScopeTrackingSync = "tracking:sync"
	ScopeTrackingRead = "tracking:read"
)
