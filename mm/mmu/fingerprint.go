// TamaGo RPi kernel
// https://github.com/usbarmory/tamago-rpi
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mmu

import (
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// fingerprintSize is the digest length in bytes: short enough to print
// inline next to a DumpMapping line, long enough that two different table
// images essentially never collide by accident.
const fingerprintSize = 16

// Fingerprint hashes the root table and every child table currently
// allocated into a short hex digest, a cheap way to notice that a table
// region changed between two dump_mapping debug sessions without diffing
// the full 64 KiB image by hand.
func (t *KernelTables) Fingerprint() string {
	h, err := blake2b.New(fingerprintSize, nil)
	if err != nil {
		// Only returns an error for an out-of-range size or key, both
		// fixed at compile time here.
		panic(err)
	}

	hashTable(h, t.root)
	for _, owned := range t.owned {
		hashTable(h, owned)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}

func hashTable(h hash.Hash, t *pageTable) {
	var buf [8]byte
	for _, entry := range t.entries {
		binary.LittleEndian.PutUint64(buf[:], entry)
		h.Write(buf[:])
	}
}
