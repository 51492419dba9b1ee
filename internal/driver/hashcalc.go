package driver

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"mirlean/internal/emit"
	"mirlean/internal/mir"
	"mirlean/internal/version"
)

// Digest is a SHA-256 content hash.
type Digest [sha256.Size]byte

// digestOf hashes the msgpack encoding of v with map keys sorted.
func digestOf(v any) (Digest, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(buf.Bytes()), nil
}

// combineDigest: H(content || dep1 || dep2 ...). deps are already in a
// deterministic order.
func combineDigest(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// crateHashes fingerprints what a translation can observe. A definition's
// cache key covers its own content, the trait surface (every trait and
// impl, which resolution may consult), the emit options and the tool
// version; the contents of the definitions it refers to are checked
// separately on reuse.
type crateHashes struct {
	defs    map[string]Digest
	surface Digest
	options Digest
}

func computeHashes(c *mir.Crate, opts emit.Options) (*crateHashes, error) {
	h := &crateHashes{defs: make(map[string]Digest, len(c.Defs))}
	var surface []string
	for i := range c.Defs {
		d := &c.Defs[i]
		dg, err := digestOf(d)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", d.Name, err)
		}
		h.defs[d.Name] = dg
		if d.Kind == mir.DefTrait || d.Kind == mir.DefImpl || !c.IsLocal(d) {
			surface = append(surface, d.Name)
		}
	}
	slices.Sort(surface)
	parts := make([]Digest, len(surface))
	for i, name := range surface {
		parts[i] = h.defs[name]
	}
	h.surface = combineDigest(sha256.Sum256([]byte(c.Name)), parts...)

	od, err := digestOf(struct {
		Tool      string
		MultiExit string
		TraitOnly map[string][]string
	}{version.Plain(), opts.MultiExit.String(), opts.TraitOnly})
	if err != nil {
		return nil, fmt.Errorf("hash options: %w", err)
	}
	h.options = od
	return h, nil
}

func (h *crateHashes) key(name string) Digest {
	return combineDigest(h.defs[name], h.surface, h.options)
}

// depHashes returns the content digests of deps in order. Unknown names
// hash to zero.
func (h *crateHashes) depHashes(deps []string) []Digest {
	out := make([]Digest, len(deps))
	for i, d := range deps {
		out[i] = h.defs[d]
	}
	return out
}
