package types

// Record is one slot of the credential table.
type Record struct {
	Slot         int
	Active       bool
	CredentialID CredentialID
	Code         string
}
