package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const sessionFileMode = 0o600

// persistedSession is the on-disk layout. Field names match the keys the
// dashboard clients use for the same state.
type persistedSession struct {
	AccessToken string `json:"access_token"`
	UserEmail   string `json:"user_email"`
}

// FileStore keeps the session credentials in a single JSON file so they
// survive client restarts. Writes go through a temp file and rename so a
// reader never sees a torn write.
type FileStore struct {
	path string
	lock sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-backed store at path. The parent folder is
// created on first write, not here, so constructing a store is always cheap
// and cannot fail.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (fs *FileStore) Token() (string, bool) {
	session := fs.read()
	if session.AccessToken == "" {
		return "", false
	}
	return session.AccessToken, true
}

func (fs *FileStore) Email() (string, bool) {
	session := fs.read()
	if session.UserEmail == "" {
		return "", false
	}
	return session.UserEmail, true
}

func (fs *FileStore) Set(token, email string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.write(persistedSession{AccessToken: token, UserEmail: email})
}

func (fs *FileStore) SetToken(token string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	session := fs.readLocked()
	session.AccessToken = token
	fs.write(session)
}

func (fs *FileStore) Clear() {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Str("path", fs.path).Msg("failed to clear session file")
	}
}

func (fs *FileStore) read() persistedSession {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return fs.readLocked()
}

// readLocked loads the session file. Any failure — missing file, unreadable
// file, corrupt JSON — degrades to an empty session rather than an error.
func (fs *FileStore) readLocked() persistedSession {
	var session persistedSession
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return persistedSession{}
	}
	if err := json.Unmarshal(data, &session); err != nil {
		log.Debug().Err(err).Str("path", fs.path).Msg("corrupt session file, treating as empty")
		return persistedSession{}
	}
	return session
}

func (fs *FileStore) write(session persistedSession) {
	data, err := json.Marshal(session)
	if err != nil {
		log.Err(err).Msg("failed to encode session state")
		return
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		log.Err(err).Str("path", fs.path).Msg("failed to create session folder")
		return
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, sessionFileMode); err != nil {
		log.Err(err).Str("path", tmp).Msg("failed to write session file")
		return
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		log.Err(err).Str("path", fs.path).Msg("failed to replace session file")
	}
}
