package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	domainerrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/secrets"
	"regdesk/pkg/validation"
)

// conn is the subset of *ldap.Conn the client uses. Narrowed for testing.
type conn interface {
	Bind(username, password string) error
	Add(req *ldap.AddRequest) error
	Del(req *ldap.DelRequest) error
	PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error)
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	SetTimeout(d time.Duration)
	Close() error
}

type dialFunc func() (conn, error)

// Config holds LDAP client configuration.
type Config struct {
	URL           string
	BaseDN        string
	AdminUser     string
	AdminPassword string
	LookupTimeout time.Duration
	MutateTimeout time.Duration
}

// LDAPClient provisions accounts over the LDAP protocol. Each operation
// establishes a fresh bound connection so a dropped directory link never
// poisons later calls.
type LDAPClient struct {
	cfg    Config
	dial   dialFunc
	logger *slog.Logger
}

// NewLDAPClient creates a directory client for the configured server.
func NewLDAPClient(cfg Config, logger *slog.Logger) *LDAPClient {
	c := &LDAPClient{cfg: cfg, logger: logger}
	c.dial = func() (conn, error) {
		l, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}))
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return c
}

func (c *LDAPClient) adminDN() string {
	return fmt.Sprintf("uid=%s,ou=people,%s", validation.EscapeDN(c.cfg.AdminUser), c.cfg.BaseDN)
}

func (c *LDAPClient) userDN(username string) string {
	return fmt.Sprintf("uid=%s,ou=people,%s", validation.EscapeDN(username), c.cfg.BaseDN)
}

// connect dials and binds as the directory admin.
func (c *LDAPClient) connect(timeout time.Duration) (conn, error) {
	l, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("dial directory: %w", err)
	}
	l.SetTimeout(timeout)
	if err := l.Bind(c.adminDN(), c.cfg.AdminPassword); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("bind as admin: %w", err)
	}
	return l, nil
}

// Exists checks the directory for an existing uid or mail. Directory errors
// are logged and treated as no collision so the workflow keeps accepting
// requests while the directory is down.
func (c *LDAPClient) Exists(ctx context.Context, username, email string) Collision {
	l, err := c.connect(c.cfg.LookupTimeout)
	if err != nil {
		c.logger.Warn("directory existence check unavailable", "error", err)
		return CollisionNone
	}
	defer func() { _ = l.Close() }()

	if c.searchHasEntries(l, fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(username))) {
		return CollisionUsername
	}
	if c.searchHasEntries(l, fmt.Sprintf("(mail=%s)", ldap.EscapeFilter(email))) {
		return CollisionEmail
	}
	return CollisionNone
}

func (c *LDAPClient) searchHasEntries(l conn, filter string) bool {
	req := ldap.NewSearchRequest(
		"ou=people,"+c.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		1, 0, false,
		filter,
		[]string{"dn"},
		nil,
	)
	res, err := l.Search(req)
	if err != nil {
		// Size limit exceeded still proves an entry exists.
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
			return true
		}
		c.logger.Warn("directory search failed", "filter", filter, "error", err)
		return false
	}
	return len(res.Entries) > 0
}

// Provision creates the user entry and sets its credential. A failure after
// entry creation deletes the entry again so a retry starts clean.
func (c *LDAPClient) Provision(ctx context.Context, account Account) (string, error) {
	// Independent of the caller's admission checks; a bypassed call site
	// must not reach the directory. These surface as invalid input, not as
	// the admission-layer validation code.
	if err := validation.Username(account.Username); err != nil {
		return "", domainerrors.New(domainerrors.CodeInvalidInput, "invalid username: "+err.Error())
	}
	if err := validation.Email(account.Email); err != nil {
		return "", domainerrors.New(domainerrors.CodeInvalidInput, "invalid email: "+err.Error())
	}
	if err := validation.NameField("first name", account.FirstName); err != nil {
		return "", domainerrors.New(domainerrors.CodeInvalidInput, err.Error())
	}
	if err := validation.NameField("last name", account.LastName); err != nil {
		return "", domainerrors.New(domainerrors.CodeInvalidInput, err.Error())
	}

	credential, err := secrets.NewCredential(secrets.CredentialLength)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generate credential")
	}

	l, err := c.connect(c.cfg.MutateTimeout)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeProvisionCreate,
			fmt.Sprintf("failed to create user %s in directory", account.Username))
	}
	defer func() { _ = l.Close() }()

	dn := c.userDN(account.Username)

	addReq := ldap.NewAddRequest(dn, nil)
	addReq.Attribute("objectClass", []string{"person", "inetOrgPerson"})
	addReq.Attribute("uid", []string{account.Username})
	addReq.Attribute("cn", []string{account.FirstName + " " + account.LastName})
	addReq.Attribute("sn", []string{account.LastName})
	addReq.Attribute("givenName", []string{account.FirstName})
	addReq.Attribute("mail", []string{account.Email})

	if err := l.Add(addReq); err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeProvisionCreate,
			fmt.Sprintf("failed to create user %s in directory", account.Username))
	}

	pwReq := ldap.NewPasswordModifyRequest(dn, "", credential)
	if _, err := l.PasswordModify(pwReq); err != nil {
		// Compensate: remove the half-provisioned entry so the request can
		// be retried from scratch. The pending row is untouched by the
		// caller on error.
		delReq := ldap.NewDelRequest(dn, nil)
		if delErr := l.Del(delReq); delErr != nil {
			c.logger.Error("rollback of partially created user failed",
				"username", account.Username,
				"error", delErr,
			)
		}
		return "", domainerrors.Wrap(err, domainerrors.CodeProvisionCredential,
			fmt.Sprintf("failed to set credential for user %s", account.Username))
	}

	return credential, nil
}
