package xmlstore

import (
	"context"
	"encoding/xml"
	"errors"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/users"
)

type usersDocument struct {
	XMLName xml.Name  `xml:"users"`
	Users   []xmlUser `xml:"user"`
}

type xmlUser struct {
	Role     string `xml:"role,attr"`
	Username string `xml:"username"`
	Password string `xml:"password"`
}

// UserFile is a users.Registry backed by an XML document.
// The document is re-read on every lookup.
type UserFile struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ users.Registry = (*UserFile)(nil)

// NewUserFile creates a UserFile for the document at path.
func NewUserFile(path string, opts ...Option) *UserFile {
	o := buildOptions(opts)
	return &UserFile{path: path, logger: o.logger}
}

// Lookup returns the first user whose username and password match exactly,
// or nil. A missing or unparsable document is PERSISTENCE_UNAVAILABLE.
func (u *UserFile) Lookup(ctx context.Context, username, password string) (*users.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var doc usersDocument
	if err := readDocument(u.path, &doc); err != nil {
		return nil, fact.NewPersistenceError("lookup user", err)
	}

	user := users.FindCredential(doc.credentials(), username, password)
	u.logger.Debug("user lookup", "username", username, "found", user != nil)
	return user, nil
}

// Credentials lists the stored users in document order. A missing document
// lists nothing.
func (u *UserFile) Credentials(ctx context.Context) ([]users.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	doc, err := u.loadLocked()
	if err != nil {
		return nil, err
	}
	return doc.credentials(), nil
}

// PutUser inserts or replaces a user, creating the document if needed.
func (u *UserFile) PutUser(ctx context.Context, cred users.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := users.ValidateCredential(cred); err != nil {
		return err
	}
	for _, f := range [][2]string{{"username", cred.Username}, {"password", cred.Password}, {"role", cred.Role}} {
		if err := checkText(f[0], f[1]); err != nil {
			return err
		}
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	doc, err := u.loadLocked()
	if err != nil {
		return err
	}

	creds := users.Upsert(doc.credentials(), cred)
	doc.Users = make([]xmlUser, 0, len(creds))
	for _, c := range creds {
		doc.Users = append(doc.Users, xmlUser{Role: c.Role, Username: c.Username, Password: c.Password})
	}
	if err := writeDocument(u.path, doc); err != nil {
		return fact.NewPersistenceError("put user", err)
	}
	u.logger.Debug("user stored", "username", cred.Username, "role", cred.Role)
	return nil
}

func (u *UserFile) loadLocked() (usersDocument, error) {
	var doc usersDocument
	if err := readDocument(u.path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return usersDocument{}, nil
		}
		return usersDocument{}, fact.NewPersistenceError("read users", err)
	}
	return doc, nil
}

func (d usersDocument) credentials() []users.Credential {
	creds := make([]users.Credential, 0, len(d.Users))
	for _, x := range d.Users {
		creds = append(creds, users.Credential{Username: x.Username, Password: x.Password, Role: x.Role})
	}
	return creds
}
