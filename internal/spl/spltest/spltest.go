// Package spltest builds raw mint and token-account bytes for tests.
package spltest

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// MintData returns base mint bytes. When hookProgram is non-zero the data
// is padded to the Token-2022 layout with a TransferHook extension.
func MintData(decimals uint8, supply uint64, authority, hookProgram solana.PublicKey) []byte {
	b := make([]byte, 82)
	binary.LittleEndian.PutUint32(b[0:4], 1)
	copy(b[4:36], authority.Bytes())
	binary.LittleEndian.PutUint64(b[36:44], supply)
	b[44] = decimals
	b[45] = 1
	// freeze authority: None
	if hookProgram.IsZero() {
		return b
	}

	ext := make([]byte, 165-82)
	b = append(b, ext...)
	b = append(b, 1) // account type: mint
	tlv := make([]byte, 4+64)
	binary.LittleEndian.PutUint16(tlv[0:2], 14)
	binary.LittleEndian.PutUint16(tlv[2:4], 64)
	copy(tlv[4:36], authority.Bytes())
	copy(tlv[36:68], hookProgram.Bytes())
	return append(b, tlv...)
}

// TokenAccountData returns an initialized token account holding amount.
func TokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	b := make([]byte, 165)
	copy(b[0:32], mint.Bytes())
	copy(b[32:64], owner.Bytes())
	binary.LittleEndian.PutUint64(b[64:72], amount)
	// delegate: None
	b[108] = 1 // state: initialized
	// is_native, delegated_amount, close_authority: None / zero
	return b
}
