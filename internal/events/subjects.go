package events

// Event subjects
const (
	GrantIssued     = "grant.issued"
	DocumentRevoked = "document.revoked"
)
