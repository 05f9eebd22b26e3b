// Package anchor encodes instructions for Anchor-framework programs.
package anchor

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Discriminator is the 8-byte selector Anchor prefixes instruction data
// with: sha256("global:" + name)[:8].
func Discriminator(name string) [8]byte {
	return prefixed("global:", name)
}

// AccountDiscriminator is the 8-byte tag at the start of an Anchor
// account: sha256("account:" + name)[:8].
func AccountDiscriminator(name string) [8]byte {
	return prefixed("account:", name)
}

func prefixed(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// ArgsWriter writes Borsh-encoded instruction arguments.
type ArgsWriter func(enc *bin.Encoder) error

// NewInstruction builds an Anchor instruction for method name. args may
// be nil for instructions without arguments.
func NewInstruction(programID solana.PublicKey, name string, accounts solana.AccountMetaSlice, args ArgsWriter) (*solana.GenericInstruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	d := Discriminator(name)
	if err := enc.WriteBytes(d[:], false); err != nil {
		return nil, fmt.Errorf("failed to write discriminator: %w", err)
	}
	if args != nil {
		if err := args(enc); err != nil {
			return nil, fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	return solana.NewInstruction(programID, accounts, buf.Bytes()), nil
}

// WriteOptionalKey writes a Borsh Option<Pubkey>; the zero key is None.
func WriteOptionalKey(enc *bin.Encoder, key solana.PublicKey) error {
	if key.IsZero() {
		return enc.WriteBool(false)
	}
	if err := enc.WriteBool(true); err != nil {
		return err
	}
	return enc.WriteBytes(key.Bytes(), false)
}
