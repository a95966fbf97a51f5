// Package directory provisions approved accounts into the LDAP directory.
package directory

import "context"

// Collision reports which directory attribute an applicant collides with.
type Collision int

const (
	CollisionNone Collision = iota
	CollisionUsername
	CollisionEmail
)

// Account is the identity provisioned into the directory.
type Account struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Client is the directory boundary. Exists answers best-effort: when the
// directory cannot be reached the check reports no collision so admissions
// are not blocked by directory outages; the duplicate surfaces again at
// provisioning time.
type Client interface {
	// Exists reports whether the username or email is already taken in the
	// directory.
	Exists(ctx context.Context, username, email string) Collision

	// Provision creates the directory entry and sets its one-time
	// credential, returning the credential in clear text exactly once. A
	// credential failure removes the partially created entry before
	// returning.
	Provision(ctx context.Context, account Account) (string, error)
}
