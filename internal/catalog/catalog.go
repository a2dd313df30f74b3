// Package catalog loads challenge definitions from a YAML file.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/forfeit/internal/domain/challenge"
)

// ErrInvalidCatalog marks a catalog that cannot be decoded or fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the on-disk layout:
//
//	challenges:
//	  - id: web-1
//	    name: Cookie Jar
//	    type: incorrect_penalty
//	    value: 100
//	    penalty: 10
//	    cumulative_cap: 25
//	    flags:
//	      - content: flag{cookies}
type File struct {
	Challenges []challenge.Challenge `yaml:"challenges"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]challenge.Challenge, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog. Unknown keys and duplicate ids are errors.
func Parse(raw []byte) ([]challenge.Challenge, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	seen := make(map[string]struct{}, len(f.Challenges))
	for i := range f.Challenges {
		c := &f.Challenges[i]
		c.Normalize()
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidCatalog, i, err)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return f.Challenges, nil
}
