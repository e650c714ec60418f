// Package document parses external JSON documents into the nested node form
// the store normalizes. Shape is checked against an embedded JSON Schema
// before unmarshaling, so malformed payloads fail with every violation named
// instead of a single unmarshal error, and inline nodes arriving without an
// id are minted one.
package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/archivegraph/errors"
	"github.com/c360/archivegraph/types/resource"
)

const component = "Document"

// documentSchema is the interchange shape: a recursive tree of typed nodes.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$ref": "#/definitions/node",
  "definitions": {
    "node": {
      "type": "object",
      "required": ["kind"],
      "properties": {
        "id": {"type": "string"},
        "kind": {
          "type": "string",
          "enum": ["collection", "manifest", "canvas", "range", "annotation"]
        },
        "behaviors": {
          "type": "array",
          "items": {"type": "string"}
        },
        "attributes": {"type": "object"},
        "items": {
          "type": "array",
          "items": {"$ref": "#/definitions/node"}
        }
      },
      "additionalProperties": false
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Parse validates and decodes a JSON document into the nested node form.
// Inline nodes without an id get a fresh urn:uuid id; reference stubs must
// carry one.
func Parse(data []byte) (*resource.Node, error) {
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, errors.WrapStructural(err, component, "Parse", "run schema validation")
	}
	if !result.Valid() {
		var violations []string
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return nil, errors.WrapStructural(
			fmt.Errorf("document shape invalid: %s", strings.Join(violations, "; ")),
			component, "Parse", "validate document shape")
	}

	var root resource.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, errors.WrapStructural(err, component, "Parse", "decode document")
	}

	if err := mintIDs(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// mintIDs assigns a urn:uuid id to every inline node that lacks one. A bare
// reference stub without an id points at nothing and is rejected.
func mintIDs(node *resource.Node) error {
	if node.ID == "" {
		if node.IsStub() {
			return errors.WrapStructural(errors.ErrNotFound, component, "Parse",
				"resolve reference stub without id")
		}
		node.ID = resource.NewID()
	}
	for _, item := range node.Items {
		if err := mintIDs(item); err != nil {
			return err
		}
	}
	return nil
}
