package augment

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"k8s.io/klog/v2"
)

// Table maps lowercase token text to its candidate replacements. It is
// loaded once at startup and shared read-only across all augmentation
// calls. An empty table makes augmentation a no-op.
type Table map[string][]string

// tableSchema validates the persisted form: an object whose values are
// non-empty arrays of strings.
const tableSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "array",
		"items": {"type": "string"},
		"minItems": 1
	}
}`

// Candidates returns the replacement candidates for a token, keyed by its
// lowercased, trimmed text.
func (t Table) Candidates(tokenText string) ([]string, bool) {
	c, ok := t[strings.ToLower(strings.TrimSpace(tokenText))]
	return c, ok
}

// LoadTable reads a substitution table from a JSON file. A missing file is
// not an error: it yields an empty table, matching the behavior of running
// without a replacement table at all.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			klog.V(1).Infof("substitution table %q not found, augmentation disabled", path)
			return Table{}, nil
		}
		return nil, errors.Wrapf(err, "failed to open substitution table %q", path)
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mmap substitution table %q", path)
	}
	defer data.Unmap()

	return ParseTable(data)
}

// ParseTable validates and decodes the serialized table form.
func ParseTable(data []byte) (Table, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(tableSchema),
		gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate substitution table")
	}
	if !result.Valid() {
		return nil, errors.Errorf("malformed substitution table: %v", result.Errors())
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "failed to decode substitution table")
	}
	klog.V(1).Infof("loaded substitution table with %d entries", len(table))
	return table, nil
}
