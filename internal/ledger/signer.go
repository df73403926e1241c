package ledger

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"Lingua/internal/subnet"
)

// voteDomain prefixes every signed vote digest.
const voteDomain = "lingua-weight-vote-v1"

// Signer holds the validator identity used for ledger votes.
type Signer struct {
	private ed25519.PrivateKey // private is the account key
	bls     *blsKeyPair        // bls is derived from private
}

// NewSigner creates a signer and derives its BLS vote key.
func NewSigner(private ed25519.PrivateKey) (*Signer, error) {
	if len(private) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key size %d", len(private))
	}

	bls, err := deriveBLSKey(private)
	if err != nil {
		return nil, fmt.Errorf("derive BLS key:\n%w", err)
	}

	return &Signer{private: private, bls: bls}, nil
}

// PublicKey returns the ed25519 account key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.private.Public().(ed25519.PublicKey)
}

// Address returns the hex account key, as listed in the subnet key map.
func (s *Signer) Address() string {
	return hex.EncodeToString(s.PublicKey())
}

// PrivateKey returns the ed25519 key, also used for the transport certificate.
func (s *Signer) PrivateKey() ed25519.PrivateKey {
	return s.private
}

// BLSPublicKey returns the compressed BLS vote key.
func (s *Signer) BLSPublicKey() []byte {
	return s.bls.publicKeyBytes()
}

// Vote is a signed weight vote.
type Vote struct {
	SubnetID     uint16       // SubnetID is the subnet being voted on
	UIDs         []subnet.UID // UIDs are the voted miners, ascending
	Weights      []uint16     // Weights are aligned with UIDs
	Voter        []byte       // Voter is the ed25519 account key
	Signature    []byte       // Signature is the ed25519 signature over the digest
	BLSPublicKey []byte       // BLSPublicKey is the voter's BLS key
	BLSSignature []byte       // BLSSignature is the BLS signature over the digest
}

// SignVote builds and signs a vote.
func (s *Signer) SignVote(subnetID uint16, uids []subnet.UID, weights []uint16) (Vote, error) {
	if len(uids) != len(weights) {
		return Vote{}, fmt.Errorf("vote has %d uids and %d weights", len(uids), len(weights))
	}

	digest := VoteDigest(subnetID, uids, weights)

	return Vote{
		SubnetID:     subnetID,
		UIDs:         uids,
		Weights:      weights,
		Voter:        s.PublicKey(),
		Signature:    ed25519.Sign(s.private, digest[:]),
		BLSPublicKey: s.bls.publicKeyBytes(),
		BLSSignature: s.bls.sign(digest[:]),
	}, nil
}

// Verify checks both signatures of a vote.
func (v Vote) Verify() bool {
	if len(v.Voter) != ed25519.PublicKeySize || len(v.UIDs) != len(v.Weights) {
		return false
	}

	digest := VoteDigest(v.SubnetID, v.UIDs, v.Weights)

	return ed25519.Verify(v.Voter, digest[:], v.Signature) &&
		VerifyBLS(v.BLSSignature, digest[:], v.BLSPublicKey)
}

// VoteDigest hashes the canonical vote encoding:
// domain || subnet(u16) || count(u32) || (uid(u16) weight(u16))*
func VoteDigest(subnetID uint16, uids []subnet.UID, weights []uint16) [32]byte {
	buf := make([]byte, 0, len(voteDomain)+6+4*len(uids))
	buf = append(buf, voteDomain...)
	buf = binary.BigEndian.AppendUint16(buf, subnetID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(uids)))

	for i, uid := range uids {
		buf = binary.BigEndian.AppendUint16(buf, uint16(uid))
		buf = binary.BigEndian.AppendUint16(buf, weights[i])
	}

	return blake3.Sum256(buf)
}
