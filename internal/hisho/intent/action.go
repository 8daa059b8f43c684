// Package intent turns a raw utterance into structured action requests.
//
// Three translators live here, all producing a TranslationResult:
//
//   - Matcher: ordered deterministic rules for common unambiguous phrasings.
//   - ParseReply: the tag grammar used to read a language model's reply.
//   - Fallback: keyword classification used when the model is unavailable.
//
// Enrich post-processes any of their outputs, filling parameters the
// translator omitted. Everything in this package is pure and free of I/O.
package intent

import (
	"maps"
	"slices"
	"strings"
)

// Service names a collaborator service.
type Service string

const (
	Calendar Service = "calendar"
	Mail     Service = "mail"
	Contacts Service = "contacts"
	Drive    Service = "drive"
	Tasks    Service = "tasks"
)

// AllServices lists every known service in display order.
var AllServices = []Service{Calendar, Mail, Contacts, Drive, Tasks}

// ParseService maps a case-insensitive name to a known Service.
func ParseService(name string) (Service, bool) {
	s := Service(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(AllServices, s) {
		return s, true
	}
	return "", false
}

// Title is the capitalised display name ("Calendar").
func (s Service) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ServiceSet is the set of enabled collaborator services.
type ServiceSet map[Service]bool

// NewServiceSet builds a set from the given services.
func NewServiceSet(services ...Service) ServiceSet {
	set := make(ServiceSet, len(services))
	for _, s := range services {
		set[s] = true
	}
	return set
}

// Has reports whether s is enabled. A nil set has nothing enabled.
func (set ServiceSet) Has(s Service) bool { return set[s] }

// List returns the enabled services in AllServices order.
func (set ServiceSet) List() []Service {
	var out []Service
	for _, s := range AllServices {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// ActionRequest is one structured request for a collaborator. Parameters are
// unvalidated strings; each collaborator validates its own.
//
// Treat an ActionRequest as immutable: With and Clone return copies that do
// not share the parameter map.
type ActionRequest struct {
	Service    Service
	Action     string
	Parameters map[string]string
}

// NewAction builds an ActionRequest from alternating key/value pairs.
func NewAction(service Service, action string, kv ...string) ActionRequest {
	params := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		params[kv[i]] = kv[i+1]
	}
	return ActionRequest{Service: service, Action: action, Parameters: params}
}

// Param returns the named parameter or "".
func (a ActionRequest) Param(key string) string {
	return a.Parameters[key]
}

// Clone returns a deep copy.
func (a ActionRequest) Clone() ActionRequest {
	a.Parameters = maps.Clone(a.Parameters)
	if a.Parameters == nil {
		a.Parameters = map[string]string{}
	}
	return a
}

// With returns a copy with key set to value.
func (a ActionRequest) With(key, value string) ActionRequest {
	c := a.Clone()
	c.Parameters[key] = value
	return c
}

// Key is the "service.VERB" form used in logs and the audit trail.
func (a ActionRequest) Key() string {
	return string(a.Service) + "." + a.Action
}

// Source records which translator produced a result.
type Source string

const (
	SourceMatcher  Source = "matcher"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// TranslationResult is the output of any translator. Actions run strictly in
// order because later actions may depend on state set by earlier ones.
type TranslationResult struct {
	Text    string
	Actions []ActionRequest
	Source  Source
}
