package export

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// JSONSchema describes the two element array form of UnitCount.
func (UnitCount) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: "[typeName, count]",
		Items: &jsonschema.Schema{
			AnyOf: []*jsonschema.Schema{
				{Type: "string"},
				{Type: "integer"},
			},
		},
	}
}

// Schema returns the JSON schema of Export.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	schema := reflector.ReflectFromType(reflect.TypeOf(Export{}))
	schema.Title = "Build Order Engine Input"
	schema.Description = "Starting state and requested build order of every non-empty player slot."
	return schema
}
