package envelope

import (
	"bytes"
	"encoding/binary"

	"agentlink/internal/domain"
)

// CanonicalBytes returns the unambiguous byte form of env that signatures
// cover. Every field except the signature itself is included, in a fixed
// order. Absent optional fields encode as zero-length.
func CanonicalBytes(env *domain.Envelope) []byte {
	var buf bytes.Buffer

	putUint16(&buf, env.Version)
	putBytes(&buf, []byte(env.Type))
	putBytes(&buf, []byte(env.SenderID))
	putUint64(&buf, uint64(env.Timestamp.UnixNano()))
	buf.Write(env.Nonce[:])
	putUint64(&buf, env.Sequence)
	putBytes(&buf, env.Ciphertext)
	putBytes(&buf, env.EncryptionNonce)

	writeHandshakePayload(&buf, env)
	return buf.Bytes()
}

func writeHandshakePayload(buf *bytes.Buffer, env *domain.Envelope) {
	switch {
	case env.Init != nil:
		p := env.Init
		putBytes(buf, []byte(p.SessionID))
		buf.Write(p.Ephemeral[:])
		putBytes(buf, p.Challenge)
		putUint16(buf, uint16(len(p.Versions)))
		for _, v := range p.Versions {
			putUint16(buf, v)
		}
		buf.Write(p.SigningKey[:])
	case env.Response != nil:
		p := env.Response
		putBytes(buf, []byte(p.SessionID))
		buf.Write(p.Ephemeral[:])
		putBytes(buf, p.Challenge)
		putBytes(buf, p.ChallengeResponse)
		putUint16(buf, p.Version)
		buf.Write(p.SigningKey[:])
	case env.Proof != nil:
		p := env.Proof
		putBytes(buf, []byte(p.SessionID))
		putBytes(buf, p.ChallengeResponse)
		putUint32(buf, p.SessionTTLSeconds)
	case env.Ready != nil:
		p := env.Ready
		putBytes(buf, []byte(p.SessionID))
		putBytes(buf, p.KeyFingerprint)
	case env.Confirm != nil:
		putBytes(buf, []byte(env.Confirm.SessionID))
	case env.Complete != nil:
		p := env.Complete
		putBytes(buf, []byte(p.SessionID))
		putUint64(buf, uint64(p.DurationMillis))
	case env.Error != nil:
		putBytes(buf, []byte(env.Error.Code))
		putBytes(buf, []byte(env.Error.Detail))
	}
}

func putUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// putBytes writes a length-prefixed field so adjacent variable-length
// fields cannot be confused for one another.
func putBytes(buf *bytes.Buffer, b []byte) {
	putUint64(buf, uint64(len(b)))
	buf.Write(b)
}
