package spl

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	accountTypeMint          = 1
	extensionTransferHook    = 14
	transferHookExtensionLen = 64
)

// DecodeMint parses the base mint layout shared by Token and Token-2022.
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) < MintSize {
		return nil, fmt.Errorf("mint data too short: %d bytes", len(data))
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data[:MintSize]).Decode(&mint); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("mint is not initialized")
	}
	return &mint, nil
}

// DecodeTokenAccount parses the base token account layout.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data[:TokenAccountSize]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("decode token account: %w", err)
	}
	return &acc, nil
}

// TransferHookProgram returns the hook program id stored in a Token-2022
// mint's TransferHook extension, if the mint has one.
func TransferHookProgram(data []byte) (solana.PublicKey, bool) {
	if len(data) <= TokenAccountSize || data[TokenAccountSize] != accountTypeMint {
		return solana.PublicKey{}, false
	}

	off := TokenAccountSize + 1
	for off+4 <= len(data) {
		typ := binary.LittleEndian.Uint16(data[off : off+2])
		length := int(binary.LittleEndian.Uint16(data[off+2 : off+4]))
		off += 4
		if typ == 0 || off+length > len(data) {
			break
		}
		if typ == extensionTransferHook && length == transferHookExtensionLen {
			program := solana.PublicKeyFromBytes(data[off+32 : off+64])
			if program.IsZero() {
				return solana.PublicKey{}, false
			}
			return program, true
		}
		off += length
	}
	return solana.PublicKey{}, false
}
