package ritual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/domain"
)

func TestLoadPrinciples(t *testing.T) {
	ps, err := LoadPrinciples()
	require.NoError(t, err)
	require.Len(t, ps, domain.PrincipleCount)
	for i, p := range ps {
		assert.Equal(t, i+1, p.Number)
		assert.NotEmpty(t, p.Title)
	}
}

func TestParsePrinciples_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"too few", "principles:\n  - {number: 1, title: a, text: b}\n", "expected 25"},
		{"unknown field", "principles:\n  - {number: 1, title: a, text: b, weight: 2}\n", "weight"},
		{"not yaml", "principles: [", "parsing principles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parsePrinciples([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}
