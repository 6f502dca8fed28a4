package ritual

import (
	"bytes"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/arbr39/kaizen/internal/domain"
)

//go:embed principles.yaml
var principlesYAML []byte

type principleFile struct {
	Principles []domain.Principle `yaml:"principles"`
}

// LoadPrinciples parses the embedded catalog.
func LoadPrinciples() ([]domain.Principle, error) {
	return parsePrinciples(principlesYAML)
}

func parsePrinciples(data []byte) ([]domain.Principle, error) {
	var f principleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing principles: %w", err)
	}
	if len(f.Principles) != domain.PrincipleCount {
		return nil, fmt.Errorf("expected %d principles, found %d", domain.PrincipleCount, len(f.Principles))
	}
	for i, p := range f.Principles {
		if p.Number != i+1 {
			return nil, fmt.Errorf("principle %d is numbered %d", i+1, p.Number)
		}
		if p.Text == "" {
			return nil, fmt.Errorf("principle %d has no text", p.Number)
		}
	}
	return f.Principles, nil
}
