// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "cloud.google.com/go/vertexai/genai"

// Schema types.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeInteger = "integer"
)

// Schema is the subset of JSON Schema the backends understand. It marshals
// to a JSON Schema document as is, and converts to the Vertex AI schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Object returns an object schema. Listed names are required.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

// Array returns an array schema with the given element schema.
func Array(items *Schema, desc string) *Schema {
	return &Schema{Type: TypeArray, Items: items, Description: desc}
}

// String returns a string schema.
func String(desc string) *Schema {
	return &Schema{Type: TypeString, Description: desc}
}

// Integer returns an integer schema.
func Integer(desc string) *Schema {
	return &Schema{Type: TypeInteger, Description: desc}
}

// SlideSchema describes types.SlideContent.
var SlideSchema = Object(map[string]*Schema{
	"title":            String("Concise slide title"),
	"bullet_points":    Array(String(""), "Bullet points (max 6, max 15 words each)"),
	"speaker_notes":    String("Spoken script for the presenter (3-6 sentences)"),
	"source_doc_names": Array(String(""), "Names of the source documents used from the context"),
}, "title", "bullet_points", "speaker_notes", "source_doc_names")

// LessonPlanSchema describes types.LessonPlan.
var LessonPlanSchema = Object(map[string]*Schema{
	"lessons": Array(Object(map[string]*Schema{
		"number":     Integer("Lesson number"),
		"title":      String("Lesson title"),
		"duration":   String("Lesson duration"),
		"objectives": Array(String(""), "Learning objectives"),
		"outline": Array(Object(map[string]*Schema{
			"title":  String("Slide title"),
			"topics": Array(String(""), "Sub-topics to cover"),
		}, "title", "topics"), "Topic outline (3-6 entries)"),
		"exercises": Array(String(""), "Practical exercises"),
		"materials": Array(String(""), "Materials and tools"),
	}, "number", "title", "objectives", "outline"), "Lessons extracted from the plan"),
}, "lessons")

func (s *Schema) genai() *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Items:       s.Items.genai(),
	}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	case TypeInteger:
		out.Type = genai.TypeInteger
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = p.genai()
		}
	}
	return out
}
