package descriptor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a file encoding of a Document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	ErrUnknownFormat = errors.New("unknown descriptor format")
	ErrDecode        = errors.New("could not decode descriptor")
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTOML}
}

// ParseFormat maps a format name to a Format. It is case-insensitive and accepts "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// DecodeDocument reads a Document in format f. Unknown keys outside experimental are rejected.
func DecodeDocument(r io.Reader, f Format) (Document, error) {
	var doc Document

	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("%w: json: %w", ErrDecode, err)
		}
		var extra json.RawMessage
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: json: unexpected content after the document", ErrDecode)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: yaml: %w", ErrDecode, err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: yaml: more than one document", ErrDecode)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(&doc)
		if err != nil {
			return Document{}, fmt.Errorf("%w: toml: %w", ErrDecode, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Document{}, fmt.Errorf("%w: toml: unknown key %q", ErrDecode, undecoded[0].String())
		}
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	return doc, nil
}

// Decode reads and validates a descriptor in format f.
func Decode(r io.Reader, f Format) (*Descriptor, error) {
	doc, err := DecodeDocument(r, f)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// Encode writes d to w in format f.
func Encode(w io.Writer, d *Descriptor, f Format) error {
	if d == nil {
		return errors.New("descriptor is nil")
	}
	doc := d.Document()

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatTOML:
		return toml.NewEncoder(w).Encode(doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Marshal returns d encoded in format f.
func Marshal(d *Descriptor, f Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadFile reads and validates a descriptor file; the format follows the extension.
func LoadFile(path string) (*Descriptor, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d, err := Decode(bytes.NewReader(data), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// WriteFile writes d to path; the format follows the extension.
func WriteFile(path string, d *Descriptor) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := Marshal(d, f)
	if err != nil {
		return err
	}

	// #nosec G306 -- descriptor files are meant to be read by the build toolchain.
	return os.WriteFile(path, data, 0o644)
}
