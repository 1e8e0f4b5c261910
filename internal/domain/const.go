package domain

// Echo context / request keys used across middleware and handlers.
const (
	RequesterIdCtxKey    = "pdr-requesterId"
	RequesterTokenCtxKey = "pdr-requesterToken"
)

// RequesterIdHeader carries the SSO-established identity from the fronting
// proxy. The service itself never performs the SAML exchange; it trusts the
// boundary the same way the original stack trusted mod_auth_mellon.
const RequesterIdHeader = "X-Remote-User"

// UpdateChannelPrefix is the redis pub/sub channel prefix for draft update
// events; the resource id is appended.
const UpdateChannelPrefix = "pdr:draft:"
