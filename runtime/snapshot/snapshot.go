// Package snapshot captures dispatch-site profiles and type digests in
// a deterministic binary form, so a run's specialization behavior can
// be stored, diffed and reloaded.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/pyrite-lang/pyrite/runtime"
)

// cborEncMode is canonical mode so equal profiles encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SiteRecord is the captured state of one dispatch cell.
type SiteRecord struct {
	PC       int    `cbor:"pc"`
	Op       string `cbor:"op"`
	State    string `cbor:"state"`
	Hits     uint64 `cbor:"hits"`
	Misses   uint64 `cbor:"misses"`
	Installs uint64 `cbor:"installs"`
}

// Profile is one run's dispatch behavior: every materialized cell of a
// code unit's site table, ordered by PC.
type Profile struct {
	Session   string       `cbor:"session"`
	CreatedAt string       `cbor:"created_at"` // RFC 3339
	Sites     []SiteRecord `cbor:"sites"`
}

// CaptureProfile records the current state of every cell in the table
// under the given session identity.
func CaptureProfile(session string, tbl *runtime.CallSiteTable) *Profile {
	p := &Profile{
		Session:   session,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Sites:     make([]SiteRecord, 0, tbl.Len()),
	}
	tbl.Each(func(pc int, cs *runtime.CallSite) {
		p.Sites = append(p.Sites, SiteRecord{
			PC:       pc,
			Op:       cs.Op().Name(),
			State:    cs.State().String(),
			Hits:     cs.Hits(),
			Misses:   cs.Misses(),
			Installs: cs.Installs(),
		})
	})
	sort.Slice(p.Sites, func(i, j int) bool {
		return p.Sites[i].PC < p.Sites[j].PC
	})
	return p
}

// MarshalProfile serializes a Profile to CBOR bytes.
func MarshalProfile(p *Profile) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalProfile deserializes a Profile from CBOR bytes.
func UnmarshalProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal profile: %w", err)
	}
	return &p, nil
}

// WriteProfile writes a Profile to path in CBOR.
func WriteProfile(path string, p *Profile) error {
	data, err := MarshalProfile(p)
	if err != nil {
		return fmt.Errorf("snapshot: marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// ReadProfile reads a Profile back from path.
func ReadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return UnmarshalProfile(data)
}
