package gov

// SignerAuthorizer grants exactly the address whose signature the host verified.
type SignerAuthorizer struct {
	Signer string
	Admin  string
}

func (a SignerAuthorizer) Authorized(address string) bool {
	return address != "" && address == a.Signer
}

func (a SignerAuthorizer) IsAdmin(address string) bool {
	return a.Admin != "" && address == a.Admin
}
