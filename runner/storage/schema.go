package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// historySchema describes the persisted history document. Per-benchmark
// fields other than ns_per_op may be absent in older archives.
const historySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "runs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["timestamp", "results"],
        "properties": {
          "timestamp": {"type": "string", "minLength": 1},
          "commit": {"type": "string"},
          "ref": {"type": "string"},
          "results": {
            "type": "object",
            "additionalProperties": {
              "type": "object",
              "required": ["ns_per_op"],
              "properties": {
                "ns_per_op": {"type": "number", "minimum": 0},
                "bytes_per_op": {"type": "number", "minimum": 0},
                "allocs_per_op": {"type": "number", "minimum": 0},
                "iterations": {"type": "integer", "minimum": 0},
                "cpus": {"type": "integer", "minimum": 0},
                "sample_count": {"type": "integer", "minimum": 0},
                "run_count": {"type": "integer", "minimum": 0}
              }
            }
          }
        }
      }
    }
  }
}`

// maxReportedViolations caps how many schema violations an error lists
const maxReportedViolations = 3

var (
	compiledSchema     *gojsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

func loadHistorySchema() (*gojsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		compiledSchema, compiledSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(historySchema))
	})
	return compiledSchema, compiledSchemaErr
}

// validateHistoryDocument checks raw JSON against the history schema. It
// returns a description of the violations, or nil when the document is valid.
func validateHistoryDocument(data []byte) error {
	schema, err := loadHistorySchema()
	if err != nil {
		return fmt.Errorf("failed to compile history schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// not parseable as JSON at all
		return err
	}
	if result.Valid() {
		return nil
	}

	violations := result.Errors()
	msgs := make([]string, 0, maxReportedViolations)
	for i, v := range violations {
		if i == maxReportedViolations {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(violations)-i))
			break
		}
		msgs = append(msgs, v.String())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
