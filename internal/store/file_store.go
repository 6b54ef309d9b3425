package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"agentlink/internal/domain"
)

const (
	idFile    = "identity.enc"
	peersFile = "peers.json" // map[string]domain.PeerInfo
)

// FileStore persists the local identity and the known-peer directory under
// one state directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// SaveIdentity writes the encrypted identity to disk.
func (s *FileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	ct, err := seal(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, idFile), ct, 0o600)
}

// LoadIdentity reads and decrypts the identity.
func (s *FileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, idFile))
	if err != nil {
		return domain.Identity{}, err
	}
	pt, err := open(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// HasIdentity reports whether an identity file exists.
func (s *FileStore) HasIdentity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(filepath.Join(s.dir, idFile))
	return err == nil
}

// SavePeer records or replaces a known peer.
func (s *FileStore) SavePeer(info domain.PeerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.PeerInfo)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return err
	}
	m[info.EntityID] = info
	return writeJSON(filepath.Join(s.dir, peersFile), m, 0o600)
}

// Lookup resolves an entity id against the peers file.
func (s *FileStore) Lookup(entityID string) (domain.PeerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.PeerInfo)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return domain.PeerInfo{}, false
	}
	info, ok := m[entityID]
	return info, ok
}

// Peers returns every known peer record.
func (s *FileStore) Peers() ([]domain.PeerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]domain.PeerInfo)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return nil, err
	}
	out := make([]domain.PeerInfo, 0, len(m))
	for _, info := range m {
		out = append(out, info)
	}
	return out, nil
}

var (
	_ domain.IdentityStore = (*FileStore)(nil)
	_ domain.Directory     = (*FileStore)(nil)
)
