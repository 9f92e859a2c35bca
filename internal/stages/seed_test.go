package stages

import (
	"errors"
	"testing"
)

func TestDefaultSeedIsValid(t *testing.T) {
	seed, err := DefaultSeed()
	if err != nil {
		t.Fatalf("default seed: %v", err)
	}
	if len(seed) != 5 {
		t.Fatalf("expected 5 default stages, got %d", len(seed))
	}
	for i, stage := range seed {
		if stage.SortOrder != i+1 {
			t.Fatalf("expected ascending sort order, got %d at %d", stage.SortOrder, i)
		}
	}
}

func TestParseSeedRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":          `{`,
		"missing stages":    `{}`,
		"empty stages":      `{"stages": []}`,
		"missing display":   `{"stages": [{"name": "a", "sort_order": 1}]}`,
		"unknown field":     `{"stages": [{"name": "a", "display_name": "A", "sort_order": 1, "color": "red"}]}`,
		"negative sort":     `{"stages": [{"name": "a", "display_name": "A", "sort_order": -2}]}`,
		"duplicate sorting": `{"stages": [{"name": "a", "display_name": "A", "sort_order": 1}, {"name": "b", "display_name": "B", "sort_order": 1}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSeed([]byte(doc)); !errors.Is(err, ErrSeedInvalid) {
				t.Fatalf("expected ErrSeedInvalid, got %v", err)
			}
		})
	}
}
