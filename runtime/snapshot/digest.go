package snapshot

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/pyrite-lang/pyrite/runtime"
)

// TypeDigest is a compact representation of a type descriptor suitable
// for content addressing: structural metadata plus a hash over it. Two
// hierarchies that linearize identically digest identically.
type TypeDigest struct {
	Name  string   `cbor:"name"`
	Bases []string `cbor:"bases"`
	MRO   []string `cbor:"mro"`
	Slots []string `cbor:"slots"`
	Hash  [32]byte `cbor:"hash"`
}

// DigestType computes the digest of a type descriptor.
func DigestType(t *runtime.Type) *TypeDigest {
	d := &TypeDigest{
		Name:  t.Name,
		Bases: typeNames(t.Bases),
		MRO:   typeNames(t.MRO()),
		Slots: append([]string(nil), t.Slots...),
	}
	d.Hash = HashType(d.Name, d.Bases, d.MRO, d.Slots)
	return d
}

// HashType computes the SHA-256 over a type's structural fields. Every
// component is length-prefixed so no two field layouts collide.
func HashType(name string, bases, mro, slots []string) [32]byte {
	var buf []byte

	writeString := func(s string) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, s...)
	}
	writeList := func(ss []string) {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(ss)))
		buf = append(buf, lenBuf[:]...)
		for _, s := range ss {
			writeString(s)
		}
	}

	writeString(name)
	writeList(bases)
	writeList(mro)
	writeList(slots)

	return sha256.Sum256(buf)
}

// MarshalTypeDigest serializes a TypeDigest to CBOR bytes.
func MarshalTypeDigest(d *TypeDigest) ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// UnmarshalTypeDigest deserializes a TypeDigest from CBOR bytes.
func UnmarshalTypeDigest(data []byte) (*TypeDigest, error) {
	var d TypeDigest
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal type digest: %w", err)
	}
	return &d, nil
}

func typeNames(types []*runtime.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}
