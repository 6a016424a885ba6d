package storefake

import (
	"sync"

	"github.com/cakradana/go-session-client/store"
)

var _ store.Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store for tests.
type FakeStore struct {
	token string
	email string
	lock  sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (fs *FakeStore) Token() (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.token == "" {
		return "", false
	}
	return fs.token, true
}

func (fs *FakeStore) Email() (string, bool) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.email == "" {
		return "", false
	}
	return fs.email, true
}

func (fs *FakeStore) Set(token, email string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.token = token
	fs.email = email
}

func (fs *FakeStore) SetToken(token string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.token = token
}

func (fs *FakeStore) Clear() {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.token = ""
	fs.email = ""
}
