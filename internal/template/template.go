// Package template renders outreach message templates with prospect
// fields using the Liquid template language. Legacy single-brace
// placeholders ({first_name}) from older campaigns are still accepted.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/innovareai/outreach-dispatcher/internal/domain"
)

// Service handles Liquid template rendering with parse caching.
type Service struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewService creates a template service with the outreach filters
// registered.
func NewService() *Service {
	engine := liquid.NewEngine()

	// Default value filter: {{ first_name | default: "there" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	return &Service{engine: engine}
}

// legacyPlaceholder matches the single-brace placeholders used by the
// original campaign builder: {first_name}, {company_name}, ...
var legacyPlaceholder = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// normalize upgrades legacy placeholders to Liquid output tags. Anything
// already in Liquid syntax passes through untouched.
func normalize(tmpl string) string {
	return legacyPlaceholder.ReplaceAllString(tmpl, "{{ $1 }}")
}

// Bindings returns the variables available to outreach templates for the
// given prospect.
func Bindings(p domain.Prospect) map[string]interface{} {
	return map[string]interface{}{
		"first_name":   p.FirstName,
		"last_name":    p.LastName,
		"full_name":    strings.TrimSpace(p.FirstName + " " + p.LastName),
		"company_name": p.CompanyName,
		"title":        p.Title,
	}
}

// Render renders one template for one prospect. Missing variables render
// as empty strings rather than failing the send.
func (s *Service) Render(tmpl string, p domain.Prospect) (string, error) {
	if tmpl == "" {
		return "", nil
	}

	normalized := normalize(tmpl)

	var parsed *liquid.Template
	if cached, ok := s.cache.Load(normalized); ok {
		parsed = cached.(*liquid.Template)
	} else {
		var err error
		parsed, err = s.engine.ParseString(normalized)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		s.cache.Store(normalized, parsed)
	}

	out, err := parsed.RenderString(Bindings(p))
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}
