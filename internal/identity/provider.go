package identity

// Identity is the stable result of authenticating against the provider.
// The ID is opaque to the rest of the system; tenant membership is a
// local concern layered on top of it.
type Identity struct {
	ID    string
	Email string
}

// Provider is the identity boundary. The core never stores or hashes
// passwords itself; everything credential-shaped goes through here, so
// the implementation can be swapped for a hosted provider without
// touching the tenancy layer.
type Provider interface {
	// VerifyCredentials checks an email/password pair and returns the
	// identity on success. Fails with a not_authenticated error on any
	// mismatch, without distinguishing unknown email from bad password.
	VerifyCredentials(email, password string) (Identity, error)

	// CreateAccount provisions a new credential record. Fails with a
	// conflict error if the email is already registered.
	CreateAccount(email, password string) (Identity, error)

	// DeleteAccount removes a credential record. Used for compensation
	// when a two-phase creation fails after this half committed.
	DeleteAccount(accountID string) error

	// IssueSession mints an opaque session credential for the identity.
	IssueSession(identity Identity) (string, error)

	// ResolveSession turns a session credential back into the identity
	// it was issued for, failing with not_authenticated otherwise.
	ResolveSession(sessionToken string) (Identity, error)
}
