// Package sanitize strips markup from free text before it leaves the service.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// Sanitizer removes every tag and keeps only text content, HTML-escaped. The policy allows
// no elements at all, so the contents of script and style blocks are dropped as well.
// A Sanitizer is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Text sanitizes a single value. The output is stable under repeated application.
func (s *Sanitizer) Text(input string) string {
	return s.policy.Sanitize(input)
}

// Optional sanitizes a nullable value; nil passes through.
func (s *Sanitizer) Optional(input *string) *string {
	if input == nil {
		return nil
	}
	out := s.Text(*input)
	return &out
}
