package capability

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// SchemaRegistry manages JSON schemas for capability parameters. Schemas are
// generated from the Go parameter structs (or supplied raw) and served to
// plugins through the getCapabilitySchema capability so callers can
// introspect a capability's parameter shape before invoking it.
type SchemaRegistry struct {
	mu        sync.RWMutex
	schemas   map[string]string
	reflector *jsonschema.Reflector
}

// NewSchemaRegistry creates an empty SchemaRegistry.
func NewSchemaRegistry() *SchemaRegistry {
	r := &SchemaRegistry{
		schemas:   make(map[string]string),
		reflector: new(jsonschema.Reflector),
	}
	r.reflector.ExpandedStruct = true
	return r
}

// RegisterSchema adds a parameter schema for a capability name.
// model can be a Go struct (schema is generated), a JSON schema string,
// raw bytes, or a map.
func (r *SchemaRegistry) RegisterSchema(name string, model interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("capability schema already registered: %s", name)
	}

	var schemaStr string
	switch v := model.(type) {
	case string:
		schemaStr = v
	case []byte:
		schemaStr = string(v)
	case map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal schema map: %w", err)
		}
		schemaStr = string(b)
	default:
		s := r.reflector.Reflect(model)
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal generated schema: %w", err)
		}
		schemaStr = string(b)
	}

	r.schemas[name] = schemaStr
	return nil
}

// Schema returns the JSON schema for a capability name.
func (r *SchemaRegistry) Schema(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// SchemaNames returns all capability names with registered schemas.
func (r *SchemaRegistry) SchemaNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}
