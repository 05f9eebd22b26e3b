package amm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/aman-zulfiqar/solana-hook-amm/internal/anchor"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// configAccountName is the Rust struct name behind the pool config PDA.
const configAccountName = "config"

// Config is the on-chain pool configuration account.
type Config struct {
	Seed         uint64
	Authority    solana.PublicKey // zero when no update authority is set
	Mint         solana.PublicKey
	Fee          uint16
	Locked       bool
	ConfigBump   uint8
	WrappedMint  solana.PublicKey
	SolVaultBump uint8
	LPBump       uint8
}

// DecodeConfig parses a pool config account, discriminator included.
func DecodeConfig(data []byte) (*Config, error) {
	disc := anchor.AccountDiscriminator(configAccountName)
	if len(data) < 8 || !bytes.Equal(data[:8], disc[:]) {
		return nil, fmt.Errorf("not a pool config account")
	}

	dec := bin.NewBorshDecoder(data[8:])
	var (
		c   Config
		err error
	)

	if c.Seed, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	hasAuthority, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("authority tag: %w", err)
	}
	if hasAuthority {
		if c.Authority, err = readKey(dec); err != nil {
			return nil, fmt.Errorf("authority: %w", err)
		}
	}
	if c.Mint, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	if c.Fee, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("fee: %w", err)
	}
	if c.Locked, err = dec.ReadBool(); err != nil {
		return nil, fmt.Errorf("locked: %w", err)
	}
	if c.ConfigBump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("config bump: %w", err)
	}
	if c.WrappedMint, err = readKey(dec); err != nil {
		return nil, fmt.Errorf("wsol mint: %w", err)
	}
	if c.SolVaultBump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("sol vault bump: %w", err)
	}
	if c.LPBump, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("lp bump: %w", err)
	}
	return &c, nil
}

// EncodeConfig is the inverse of DecodeConfig.
func EncodeConfig(c *Config) ([]byte, error) {
	buf := new(bytes.Buffer)
	disc := anchor.AccountDiscriminator(configAccountName)
	buf.Write(disc[:])

	enc := bin.NewBorshEncoder(buf)
	steps := []func() error{
		func() error { return enc.WriteUint64(c.Seed, binary.LittleEndian) },
		func() error { return anchor.WriteOptionalKey(enc, c.Authority) },
		func() error { return enc.WriteBytes(c.Mint.Bytes(), false) },
		func() error { return enc.WriteUint16(c.Fee, binary.LittleEndian) },
		func() error { return enc.WriteBool(c.Locked) },
		func() error { return enc.WriteUint8(c.ConfigBump) },
		func() error { return enc.WriteBytes(c.WrappedMint.Bytes(), false) },
		func() error { return enc.WriteUint8(c.SolVaultBump) },
		func() error { return enc.WriteUint8(c.LPBump) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(32)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}
