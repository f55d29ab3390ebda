package payment

// ContactIndex resolves counterparty addresses to contact names
type ContactIndex interface {
	// NameFor returns the contact name saved for address
	NameFor(address string) (string, bool)
}
