package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// KeypairSize is the length of a Solana keypair in its raw form:
// the 32-byte ed25519 seed followed by the 32-byte public key.
const KeypairSize = ed25519.PrivateKeySize

// Keypair is a Solana signing credential. The zero value is not usable;
// obtain one from Generate, FromBytes or LoadKeypair.
type Keypair struct {
	priv solana.PrivateKey
}

// Generate creates a new random keypair and returns it together with the
// base58 encoding of its raw bytes (seed ++ public key), which is the format
// wallets such as Phantom accept for import.
func Generate() (Keypair, string, error) {
	priv, err := solana.NewRandomPrivateKey()
	if err != nil {
		return Keypair{}, "", fmt.Errorf("failed to generate keypair: %w", err)
	}
	kp := Keypair{priv: priv}
	return kp, kp.EncodedSecret(), nil
}

// FromBytes reconstructs a keypair from its 64 raw bytes. The public half
// must match the key derived from the seed half.
func FromBytes(raw []byte) (Keypair, error) {
	if len(raw) != KeypairSize {
		return Keypair{}, fmt.Errorf("invalid keypair length: expected %d bytes, got %d", KeypairSize, len(raw))
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return Keypair{}, fmt.Errorf("public key does not match secret seed")
	}
	priv := make(solana.PrivateKey, KeypairSize)
	copy(priv, raw)
	return Keypair{priv: priv}, nil
}

// FromEncodedSecret reverses EncodedSecret.
func FromEncodedSecret(secret string) (Keypair, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return Keypair{}, fmt.Errorf("invalid base58 secret: %w", err)
	}
	return FromBytes(raw)
}

// PublicKey returns the account address.
func (k Keypair) PublicKey() solana.PublicKey {
	return k.priv.PublicKey()
}

// Address returns the base58 account address.
func (k Keypair) Address() string {
	return k.PublicKey().String()
}

// PrivateKey returns the key in the form solana-go signers expect.
func (k Keypair) PrivateKey() solana.PrivateKey {
	return k.priv
}

// Bytes returns a copy of the raw keypair bytes.
func (k Keypair) Bytes() []byte {
	out := make([]byte, len(k.priv))
	copy(out, k.priv)
	return out
}

// EncodedSecret returns the base58 encoding of the raw keypair bytes.
func (k Keypair) EncodedSecret() string {
	return base58.Encode(k.priv)
}

// MarshalJSON encodes the keypair as a JSON array of byte values, the format
// used by solana-keygen. encoding/json would otherwise emit base64 for []byte.
func (k Keypair) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(k.priv))
	for i, b := range k.priv {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// LoadError reports a keypair file that could not be read or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load keypair from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadKeypair reads a solana-keygen style JSON byte array from path.
func LoadKeypair(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, &LoadError{Path: path, Err: err}
	}
	kp, err := ParseKeypairJSON(data)
	if err != nil {
		return Keypair{}, &LoadError{Path: path, Err: err}
	}
	return kp, nil
}

// ParseKeypairJSON decodes a JSON array of byte values into a keypair.
func ParseKeypairJSON(data []byte) (Keypair, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return Keypair{}, fmt.Errorf("malformed keypair JSON: %w", err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return Keypair{}, fmt.Errorf("byte %d out of range: %d", i, v)
		}
		raw[i] = byte(v)
	}
	return FromBytes(raw)
}
