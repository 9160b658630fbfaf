package main

import (
	"buggfix/internal/playground/localstore"
)

// Keys for the persisted login session.
const (
	sessionTokenKey = "session.token"
	sessionNameKey  = "session.name"
	sessionEmailKey = "session.email"
)

// session reads the persisted login from the local store. It doubles as
// the token source for the HTTP client and the identity the sync store
// consults.
type session struct {
	local *localstore.Store
}

func (s *session) read(key string) string {
	value, _, _ := s.local.Get(key)
	return value
}

func (s *session) Token() string { return s.read(sessionTokenKey) }

func (s *session) Authenticated() bool { return s.Token() != "" }

func (s *session) DisplayName() string { return s.read(sessionNameKey) }

func (s *session) Email() string { return s.read(sessionEmailKey) }

func (s *session) save(token, name, email string) error {
	if err := s.local.Set(sessionTokenKey, token); err != nil {
		return err
	}
	if err := s.local.Set(sessionNameKey, name); err != nil {
		return err
	}
	return s.local.Set(sessionEmailKey, email)
}

func (s *session) clear() error {
	for _, key := range []string{sessionTokenKey, sessionNameKey, sessionEmailKey} {
		if err := s.local.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
