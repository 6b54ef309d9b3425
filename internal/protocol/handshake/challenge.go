package handshake

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"agentlink/internal/domain"
)

// Version is the protocol version this build speaks natively.
const Version uint16 = 1

// SupportedVersions lists every version this build accepts, ascending.
var SupportedVersions = []uint16{1}

// challengeSize is the length of a handshake challenge.
const challengeSize = 32

func newChallenge() ([]byte, error) {
	c := make([]byte, challengeSize)
	if _, err := rand.Read(c); err != nil {
		return nil, err
	}
	return c, nil
}

// challengeResponse commits the answering side's ephemeral and static public
// keys to the peer's challenge.
func challengeResponse(challenge []byte, eph domain.X25519Public, static domain.Ed25519Public) []byte {
	h := sha256.New()
	h.Write([]byte("agentlink/v1|challenge"))
	h.Write(challenge)
	h.Write(eph[:])
	h.Write(static[:])
	return h.Sum(nil)
}

// negotiate picks the highest version present in both lists.
func negotiate(ours, theirs []uint16) (uint16, error) {
	mutual := make(map[uint16]bool, len(ours))
	for _, v := range ours {
		mutual[v] = true
	}
	var best uint16
	found := false
	for _, v := range theirs {
		if mutual[v] && (!found || v > best) {
			best = v
			found = true
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: ours %v, theirs %v", domain.ErrVersionMismatch, ours, theirs)
	}
	return best, nil
}
