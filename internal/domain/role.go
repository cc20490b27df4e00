package domain

// Role is the channel privilege requested by a caller.
type Role string

const (
	RolePublisher Role = "publisher"
	RoleAudience  Role = "audience"
)

// IdentityMode selects how the subject identifier is interpreted by the transport signer.
type IdentityMode string

const (
	IdentityModeUID     IdentityMode = "uid"
	IdentityModeAccount IdentityMode = "userAccount"
)
