package main

import (
	"fmt"
	"io"
	"math/big"

	"milkyway/internal/codec"
)

// parseSerial parses a serial given on the command line as a hex string
// (the same format codec.Uint128.String prints), or "0" for the root.
func parseSerial(s string) (codec.Uint128, error) {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return codec.Uint128{}, fmt.Errorf("invalid serial %q: not a hex number", s)
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return codec.Uint128{}, fmt.Errorf("invalid serial %q: out of range", s)
	}
	mask64 := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask64).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return codec.Uint128{Lo: lo, Hi: hi}, nil
}

// printSigningTable renders SERIAL/NAME/FLAGS/PARENT columns for signing
// certificates, the non-interactive analogue of the original CLI's table
// module (spec.md §1 excludes colorized/paginated output).
func printSigningTable(w io.Writer, certs []*signingRow) {
	fmt.Fprintf(w, "%-20s %-20s %-30s %-20s\n", "SERIAL", "NAME", "FLAGS", "PARENT")
	for _, c := range certs {
		fmt.Fprintf(w, "%-20s %-20s %-30s %-20s\n", c.Serial, c.Name, c.Flags, c.Parent)
	}
}

func printEncryptionTable(w io.Writer, certs []*encryptionRow) {
	fmt.Fprintf(w, "%-20s %-20s %-20s\n", "SERIAL", "NAME", "PARENT")
	for _, c := range certs {
		fmt.Fprintf(w, "%-20s %-20s %-20s\n", c.Serial, c.Name, c.Parent)
	}
}

type signingRow struct {
	Serial string
	Name   string
	Flags  string
	Parent string
}

type encryptionRow struct {
	Serial string
	Name   string
	Parent string
}
