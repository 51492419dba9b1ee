package mir

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// BundleFormat selects the on-disk encoding of a crate bundle.
type BundleFormat uint8

const (
	FormatMsgpack BundleFormat = iota
	FormatJSON
)

// Current schema version - increment when the Crate layout changes.
const bundleSchemaVersion uint16 = 1

type bundleEnvelope struct {
	Schema uint16
	Crate  *Crate
}

// FormatForPath picks the encoding from the file extension (.json or msgpack otherwise).
func FormatForPath(path string) BundleFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMsgpack
}

// ReadBundle decodes a crate bundle.
func ReadBundle(r io.Reader, format BundleFormat) (*Crate, error) {
	var env bundleEnvelope
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("decode json bundle: %w", err)
		}
	default:
		dec := msgpack.NewDecoder(r)
		if err := dec.Decode(&env); err != nil {
			return nil, fmt.Errorf("decode msgpack bundle: %w", err)
		}
	}
	if env.Schema != bundleSchemaVersion {
		return nil, fmt.Errorf("unsupported bundle schema %d (want %d)", env.Schema, bundleSchemaVersion)
	}
	if env.Crate == nil {
		return nil, errors.New("bundle has no crate")
	}
	return env.Crate, nil
}

// WriteBundle encodes a crate bundle.
func WriteBundle(w io.Writer, c *Crate, format BundleFormat) error {
	env := bundleEnvelope{Schema: bundleSchemaVersion, Crate: c}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&env)
	default:
		return msgpack.NewEncoder(w).Encode(&env)
	}
}

// LoadBundle reads a crate bundle from disk.
func LoadBundle(path string) (*Crate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := ReadBundle(bufio.NewReader(f), FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
