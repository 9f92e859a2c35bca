package stages

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed data/stage_seed.schema.json
var seedSchemaDocument []byte

//go:embed data/default_stages.json
var defaultSeedDocument []byte

// ErrSeedInvalid is returned when a catalog document fails schema validation.
var ErrSeedInvalid = errors.New("stages: seed document invalid")

var (
	seedSchemaOnce sync.Once
	seedSchema     *jsonschema.Schema
	seedSchemaErr  error
)

type seedDocument struct {
	Stages []CreateStageInput `json:"stages"`
}

// DefaultSeed returns the embedded production pipeline.
func DefaultSeed() ([]CreateStageInput, error) {
	return ParseSeed(defaultSeedDocument)
}

// ParseSeed validates a JSON catalog document and decodes its stages. Sort
// orders must be distinct within the document.
func ParseSeed(data []byte) ([]CreateStageInput, error) {
	schema, err := compiledSeedSchema()
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedInvalid, err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSeedInvalid, describeValidation(err))
	}

	var doc seedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedInvalid, err)
	}

	seen := make(map[int]string, len(doc.Stages))
	for _, stage := range doc.Stages {
		if other, ok := seen[stage.SortOrder]; ok {
			return nil, fmt.Errorf("%w: sort_order %d used by %q and %q", ErrSeedInvalid, stage.SortOrder, other, stage.Name)
		}
		seen[stage.SortOrder] = stage.Name
	}
	return doc.Stages, nil
}

func compiledSeedSchema() (*jsonschema.Schema, error) {
	seedSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("stage_seed.schema.json", bytes.NewReader(seedSchemaDocument)); err != nil {
			seedSchemaErr = err
			return
		}
		seedSchema, seedSchemaErr = compiler.Compile("stage_seed.schema.json")
	})
	return seedSchema, seedSchemaErr
}

func describeValidation(err error) string {
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return err.Error()
	}
	messages := []string{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			messages = append(messages, strings.TrimSpace(node.InstanceLocation+" "+node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(validationErr)
	return strings.Join(messages, "; ")
}
