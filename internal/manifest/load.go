package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"ttt/internal/errors"
)

// Format is the encoding of a descriptor file.
type Format string

// Supported descriptor encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the descriptor encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.NewParsingError(path, fmt.Sprintf("unsupported descriptor extension %q (use .yaml, .yml or .json)", filepath.Ext(path)), nil)
	}
}

// Load reads, validates and completes the descriptor at path, including its
// long description. A missing README fails the load.
func Load(path string) (*Descriptor, error) {
	d, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}

	if err := d.ReadLongDescription(filepath.Dir(d.Source)); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadSnapshot reads and validates the descriptor at path without touching
// the README. It is used to compare historical descriptors.
func LoadSnapshot(path string) (*Descriptor, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapFileError(path, err)
	}
	defer file.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	d, err := Parse(file, format, abs)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Parse decodes a descriptor from r. source is used in error messages and
// recorded as the descriptor's Source. Defaults are applied; the result is
// not validated.
func Parse(r io.Reader, format Format, source string) (*Descriptor, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewParsingError(source, "failed to read descriptor", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.NewParsingError(source, "descriptor is empty", nil)
	}

	k := koanf.New(".")
	switch format {
	case FormatYAML:
		err = k.Load(rawbytes.Provider(content), yaml.Parser())
	case FormatJSON:
		err = k.Load(rawbytes.Provider(content), json.Parser())
	default:
		return nil, errors.NewParsingError(source, fmt.Sprintf("unsupported format: %s", format), nil)
	}
	if err != nil {
		return nil, errors.NewParsingError(source, fmt.Sprintf("failed to parse %s", strings.ToUpper(string(format))), err)
	}

	if unknown := unknownKeys(k); len(unknown) > 0 {
		return nil, errors.NewParsingError(source, "unknown keys: "+strings.Join(unknown, ", "), nil)
	}

	d := &Descriptor{}
	if err := k.Unmarshal("", d); err != nil {
		return nil, errors.NewParsingError(source, "failed to decode descriptor", err)
	}
	d.Source = source
	d.ApplyDefaults()
	return d, nil
}

// ReadLongDescription loads the README named by the descriptor, resolved
// against root.
func (d *Descriptor) ReadLongDescription(root string) error {
	path := d.ReadmePath(root)
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapFileError(path, err)
	}
	d.LongDescription = string(content)
	return nil
}

// ReadmePath returns the README location resolved against root.
func (d *Descriptor) ReadmePath(root string) string {
	readme := d.Readme
	if readme == "" {
		readme = DefaultReadme
	}
	return filepath.Join(root, filepath.FromSlash(readme))
}

var knownKeys = descriptorKeys()

func descriptorKeys() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Descriptor{})
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("koanf"), ",", 2)[0]
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

func unknownKeys(k *koanf.Koanf) []string {
	seen := make(map[string]bool)
	var unknown []string
	for _, key := range k.Keys() {
		top := strings.SplitN(key, ".", 2)[0]
		if knownKeys[top] || seen[top] {
			continue
		}
		seen[top] = true
		unknown = append(unknown, top)
	}
	sort.Strings(unknown)
	return unknown
}
