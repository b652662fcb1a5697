package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docfields/internal/common"
)

const (
	MaxFieldKeyLength         = 128
	MaxFieldDescriptionLength = 1000
)

// Field is one named value to extract plus the description guiding the model.
type Field struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description" yaml:"description"`
}

// FieldSpec is an immutable ordered set of fields. Build it with NewFieldSpec or ParseFieldSpec.
type FieldSpec struct {
	fields []Field
	index  map[string]int
}

// NewFieldSpec validates and copies fields.
func NewFieldSpec(fields ...Field) (FieldSpec, error) {
	if err := validateFields(fields); err != nil {
		return FieldSpec{}, err
	}
	spec := FieldSpec{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range spec.fields {
		spec.index[f.Key] = i
	}
	return spec, nil
}

// MustFieldSpec is NewFieldSpec for literals known to be valid; it panics otherwise.
func MustFieldSpec(fields ...Field) FieldSpec {
	spec, err := NewFieldSpec(fields...)
	if err != nil {
		panic(err)
	}
	return spec
}

func (s FieldSpec) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in declaration order.
func (s FieldSpec) Fields() []Field { return append([]Field(nil), s.fields...) }

// Keys returns the field keys in declaration order.
func (s FieldSpec) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.Key
	}
	return keys
}

func (s FieldSpec) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Validate re-checks the fields; the zero FieldSpec is invalid.
func (s FieldSpec) Validate() error {
	return validateFields(s.fields)
}

func validateFields(fields []Field) error {
	if len(fields) == 0 {
		return common.InvalidFieldSpec("field spec is empty", nil)
	}
	v := common.NewValidator()
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		name := fmt.Sprintf("fields[%d].key", i)
		v.Field(name, f.Key, common.Required, common.NoControlChars, common.MaxLengthRule(MaxFieldKeyLength))
		v.Field(fmt.Sprintf("fields[%d].description", i), f.Description, common.MaxLengthRule(MaxFieldDescriptionLength))
		if _, dup := seen[f.Key]; dup {
			v.Add(name, f.Key, "duplicate key")
		}
		seen[f.Key] = struct{}{}
	}
	if v.HasErrors() {
		return common.InvalidFieldSpec(v.ErrorMessage(), nil)
	}
	return nil
}

// ParseFieldSpec reads a JSON or YAML object of key -> description, keeping declaration order.
func ParseFieldSpec(data []byte) (FieldSpec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FieldSpec{}, common.InvalidFieldSpec("field spec is empty", nil)
	}
	var (
		fields []Field
		err    error
	)
	if trimmed[0] == '{' {
		fields, err = parseJSONFields(trimmed)
	} else {
		fields, err = parseYAMLFields(trimmed)
	}
	if err != nil {
		return FieldSpec{}, common.InvalidFieldSpec("malformed field spec", err)
	}
	return NewFieldSpec(fields...)
}

// LoadFieldSpec reads a field spec file (.json, .yaml or .yml).
func LoadFieldSpec(path string) (FieldSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldSpec{}, fmt.Errorf("read field spec %s: %w", path, err)
	}
	return ParseFieldSpec(data)
}

func parseJSONFields(data []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected a JSON object")
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var desc string
		if err := dec.Decode(&desc); err != nil {
			return nil, fmt.Errorf("description for %q must be a string: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Description: desc})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after field spec object")
	}
	return fields, nil
}

func parseYAMLFields(data []byte) ([]Field, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("expected a YAML mapping")
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, errors.New("expected a YAML mapping")
	}
	fields := make([]Field, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: key must be a scalar", k.Line)
		}
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: description for %q must be a string", v.Line, k.Value)
		}
		fields = append(fields, Field{Key: k.Value, Description: v.Value})
	}
	return fields, nil
}
