package did

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-did-registry-sdk/vdrerr"
)

//go:embed schema/did_document.schema.json
var documentSchemaJSON []byte

var (
	documentSchema *gojsonschema.Schema
	loadSchemaOnce sync.Once
	errLoadSchema  error
)

// loadDocumentSchema compiles the embedded DID document schema exactly once.
func loadDocumentSchema() (*gojsonschema.Schema, error) {
	loadSchemaOnce.Do(func() {
		documentSchema, errLoadSchema = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchemaJSON))
		if errLoadSchema != nil {
			errLoadSchema = fmt.Errorf("failed to compile DID document schema: %w", errLoadSchema)
		}
	})
	return documentSchema, errLoadSchema
}

// ParseDocumentJSON converts a JSON DID document into a Document.
//
// The input is validated against the canonical document schema before it is
// decoded, and the decoded document must satisfy Document.Validate. Empty
// lists are returned as nil, see Document.Normalized.
func ParseDocumentJSON(data []byte) (*Document, error) {
	if err := validateAgainstSchema(gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindValidation, "parseDocument", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc.Normalized(), nil
}

// ParseDocumentMap converts a generic structured value, as produced by a
// JSON decoder or a host binding, into a Document.
func ParseDocumentMap(m map[string]any) (*Document, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, vdrerr.Wrap(vdrerr.KindValidation, "parseDocument", err)
	}
	return ParseDocumentJSON(data)
}

// ToMap converts the document into its generic structured form.
func (d *Document) ToMap() (map[string]any, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DID document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DID document: %w", err)
	}
	return m, nil
}

func validateAgainstSchema(doc gojsonschema.JSONLoader) error {
	const op = "parseDocument"

	schema, err := loadDocumentSchema()
	if err != nil {
		return err
	}

	result, err := schema.Validate(doc)
	if err != nil {
		return vdrerr.Validation(op, "document is not valid JSON: %v", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return vdrerr.Validation(op, "document does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
