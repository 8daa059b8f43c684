package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/bdobrica/Hisho/internal/hisho/intent"
)

// Schemas validates action parameters against per-verb JSON schemas. Model
// output is loose, so every collaborator checks its parameters here on entry
// rather than trusting the translator.
type Schemas struct {
	service intent.Service
	byVerb  map[string]*jsonschema.Schema
}

// MustSchemas compiles one schema document per verb and panics on an invalid
// document. Schemas are package-level literals, so a failure is a programming
// error.
func MustSchemas(service intent.Service, docs map[string]string) *Schemas {
	s := &Schemas{service: service, byVerb: make(map[string]*jsonschema.Schema, len(docs))}
	for verb, doc := range docs {
		url := fmt.Sprintf("hisho://%s/%s.json", service, strings.ToLower(verb))
		s.byVerb[verb] = jsonschema.MustCompileString(url, doc)
	}
	return s
}

// Validate checks params for verb. It wraps ErrUnknownAction for a verb with
// no schema and ErrInvalidParams for a failed check.
func (s *Schemas) Validate(verb string, params map[string]string) error {
	sch, ok := s.byVerb[verb]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownAction, s.service, verb)
	}
	doc := make(map[string]interface{}, len(params))
	for k, v := range params {
		doc[k] = v
	}
	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s.%s: %s", ErrInvalidParams, s.service, verb, leafMessage(ve))
		}
		return fmt.Errorf("%w: %s.%s: %v", ErrInvalidParams, s.service, verb, err)
	}
	return nil
}

// leafMessage returns the most specific cause of a validation failure.
func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		return ve.Message
	}
	return loc + ": " + ve.Message
}

// Object is a convenience for building a schema document of string
// properties. required names must be present and non-blank.
func Object(required []string, props map[string]string) string {
	var b strings.Builder
	b.WriteString(`{"type":"object","properties":{`)
	first := true
	for name, prop := range props {
		if !first {
			b.WriteString(",")
		}
		first = false
		fmt.Fprintf(&b, "%q:%s", name, prop)
	}
	b.WriteString("}")
	if len(required) > 0 {
		b.WriteString(`,"required":[`)
		for i, r := range required {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "%q", r)
		}
		b.WriteString("]")
	}
	b.WriteString("}")
	return b.String()
}

// Common property schemas.
const (
	AnyString = `{"type":"string"}`
	NonBlank  = `{"type":"string","pattern":"\\S"}`
	Digits    = `{"type":"string","pattern":"^[0-9]+$"}`
	Email     = `{"type":"string","pattern":"^[^@\\s]+@[^@\\s]+\\.[^@\\s]+$"}`
	YesNo     = `{"type":"string","enum":["true","false"]}`
)

// Enum builds a string enum property schema.
func Enum(values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return `{"type":"string","enum":[` + strings.Join(quoted, ",") + `]}`
}
