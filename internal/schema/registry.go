// Package schema lets the embedding harness register a JSON Schema for a
// method's params, so the dispatcher can reject a structurally valid but
// semantically wrong request before it ever reaches on_request —
// the same "params must be array/object" idea from the core validator,
// extended from shape to content.
package schema

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Registry holds one compiled JSON Schema per method name.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Register compiles schemaJSON (a JSON Schema document, 2020-12 draft) and
// binds it to method. A later call for the same method replaces the prior
// schema.
func (r *Registry) Register(method string, schemaJSON []byte) error {
	if method == "" {
		return errors.New("schema: method name is required")
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	url := "mem://" + method
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return errors.Wrapf(err, "schema: adding resource for %q", method)
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return errors.Wrapf(err, "schema: compiling schema for %q", method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[method] = sch
	return nil
}

// HasSchema reports whether method has a registered schema.
func (r *Registry) HasSchema(method string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[method]
	return ok
}

// Validate checks params against method's registered schema. It returns
// nil if no schema is registered for method — an unregistered method is
// not a validation failure, it is simply unchecked — or if params
// validates successfully.
func (r *Registry) Validate(method string, params json.RawMessage) error {
	r.mu.RLock()
	sch, ok := r.schemas[method]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	var value interface{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &value); err != nil {
			return errors.Wrap(err, "schema: params is not valid JSON")
		}
	}

	if err := sch.Validate(value); err != nil {
		return errors.Wrapf(err, "schema: params for %q failed validation", method)
	}
	return nil
}
