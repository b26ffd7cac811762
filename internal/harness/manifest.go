package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ehr/measure-harness/internal/domain/scoring"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Manifest describes the measure under test.
type Manifest struct {
	Name     string            `yaml:"name" validate:"required"`
	Library  string            `yaml:"library" validate:"required"`
	Version  string            `yaml:"version"`
	Criteria map[string]string `yaml:"criteria"`

	// Names is Criteria resolved against the known criteria.
	Names scoring.ExpressionNames `yaml:"-"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a manifest. Unknown top-level fields
// and unknown criterion keys are errors.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	names, err := scoring.ParseExpressionNames(m.Criteria)
	if err != nil {
		return nil, err
	}
	m.Names = names
	return &m, nil
}
