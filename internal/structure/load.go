package structure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// lessonFileSchema describes a curriculum file: one lesson or a list of
// lessons under "lessons".
const lessonFileSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "element": {
      "type": "object",
      "required": ["id", "order"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "title": {"type": "string"},
        "weight": {"type": "number", "minimum": 0},
        "order": {"type": "integer", "minimum": 1}
      }
    },
    "lesson": {
      "type": "object",
      "required": ["lessonId", "elements"],
      "properties": {
        "lessonId": {"type": "string", "minLength": 1},
        "elements": {"type": "array", "items": {"$ref": "#/$defs/element"}}
      }
    }
  },
  "oneOf": [
    {"$ref": "#/$defs/lesson"},
    {
      "type": "object",
      "required": ["lessons"],
      "properties": {"lessons": {"type": "array", "items": {"$ref": "#/$defs/lesson"}}}
    }
  ]
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func lessonSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(lessonFileSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse lesson schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://lesson-structure.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// fileElement mirrors Element with an optional weight so an absent key can
// default to DefaultWeight while an explicit 0 is kept.
type fileElement struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Weight *float64 `json:"weight"`
	Order  int      `json:"order"`
}

type fileLesson struct {
	ID       string        `json:"lessonId"`
	Elements []fileElement `json:"elements"`
}

type fileDoc struct {
	fileLesson
	Lessons []fileLesson `json:"lessons"`
}

// LoadFile reads a YAML or JSON curriculum file and returns its lessons.
// The document is schema-checked, then each lesson is validated.
func LoadFile(path string) ([]*Lesson, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	lessons, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lessons, nil
}

// Parse decodes curriculum data. ext selects the decoder (".json", or YAML
// for anything else).
func Parse(raw []byte, ext string) ([]*Lesson, error) {
	jsonBytes, err := ToJSON(raw, ext)
	if err != nil {
		return nil, err
	}

	schema, err := lessonSchema()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	src := doc.Lessons
	if doc.ID != "" {
		src = append([]fileLesson{doc.fileLesson}, src...)
	}

	out := make([]*Lesson, 0, len(src))
	for _, fl := range src {
		l := &Lesson{ID: fl.ID, Elements: make([]Element, 0, len(fl.Elements))}
		for _, fe := range fl.Elements {
			w := DefaultWeight
			if fe.Weight != nil {
				w = *fe.Weight
			}
			l.Elements = append(l.Elements, Element{ID: fe.ID, Title: fe.Title, Weight: w, Order: fe.Order})
		}
		if err := Validate(l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ToJSON converts YAML input to JSON. JSON input passes through unchanged.
func ToJSON(raw []byte, ext string) ([]byte, error) {
	if strings.EqualFold(ext, ".json") {
		return raw, nil
	}
	var v any
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("re-encode yaml as json: %w", err)
	}
	return b, nil
}
