package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Identity is the session payload returned by the server, kept verbatim.
// The client does not own its shape; helpers below read the fields the
// job board currently sends and tolerate anything else.
type Identity struct {
	raw json.RawMessage
}

// NewIdentity wraps a raw JSON document. The input is copied.
func NewIdentity(raw []byte) (*Identity, error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("identity is not valid JSON")
	}
	return &Identity{raw: append(json.RawMessage(nil), trimmed...)}, nil
}

// Raw returns a copy of the JSON document
func (i *Identity) Raw() json.RawMessage {
	if i == nil {
		return nil
	}
	return append(json.RawMessage(nil), i.raw...)
}

// Decode unmarshals the document into v
func (i *Identity) Decode(v any) error {
	if i == nil {
		return fmt.Errorf("no identity")
	}
	return json.Unmarshal(i.raw, v)
}

// MarshalJSON emits the document unchanged
func (i *Identity) MarshalJSON() ([]byte, error) {
	if i == nil {
		return []byte("null"), nil
	}
	return i.Raw(), nil
}

// sessionUser is the "user" object of the job board session payload
type sessionUser struct {
	ID        any      `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Groups    []string `json:"groups"`
}

func (i *Identity) user() (sessionUser, bool) {
	var payload struct {
		User *sessionUser `json:"user"`
	}
	if err := i.Decode(&payload); err != nil || payload.User == nil {
		return sessionUser{}, false
	}
	return *payload.User, true
}

// Roles returns the group names of the logged-in user
func (i *Identity) Roles() []string {
	u, ok := i.user()
	if !ok {
		return nil
	}
	return u.Groups
}

// HasRole reports whether the user belongs to the named group
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// DisplayName picks the most human label available
func (i *Identity) DisplayName() string {
	u, ok := i.user()
	if !ok {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// Equal compares two identities by their JSON documents
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return bytes.Equal(i.raw, other.raw)
}
