package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvforge/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

// ResponseSchema is the JSON schema every model answer must satisfy before
// its content is trusted.
const ResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["improvedText"],
  "properties": {
    "improvedText": {"type": "string", "minLength": 1},
    "suggestions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["section", "suggestion"],
        "properties": {
          "section": {"type": "string", "minLength": 1},
          "suggestion": {"type": "string", "minLength": 1},
          "suggestedCopy": {"type": ["string", "null"]},
          "rationale": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var responseSchemaLoader = gojsonschema.NewStringLoader(ResponseSchema)

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every schema violation of a model answer.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("response validation failed:")
	for i, err := range ve.Errors {
		fmt.Fprintf(&sb, " %d. %s: %s;", i+1, err.Field, err.Message)
	}
	return sb.String()
}

// modelAnswer mirrors ResponseSchema.
type modelAnswer struct {
	ImprovedText string             `json:"improvedText"`
	Suggestions  []types.Suggestion `json:"suggestions"`
}

// ValidateResponse checks raw JSON against ResponseSchema.
func ValidateResponse(raw string) error {
	result, err := gojsonschema.Validate(responseSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to load response for validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}

// ParseResponse turns model content into a Result. Prose that is not JSON at
// all is taken as the improved CV with no suggestions. Malformed JSON, and
// JSON that violates ResponseSchema, is rejected.
func ParseResponse(content string) Result {
	body, lang := extractJSON(strings.TrimSpace(content))
	if body == "" {
		return Failure("empty response from model")
	}

	if !json.Valid([]byte(body)) {
		if looksLikeJSON(body, lang) {
			return Failure("malformed JSON returned by model")
		}
		return Success(Ok{ImprovedText: body, Suggestions: []types.Suggestion{}})
	}

	if err := ValidateResponse(body); err != nil {
		return Failure(err.Error())
	}

	var answer modelAnswer
	if err := json.Unmarshal([]byte(body), &answer); err != nil {
		return Failure(fmt.Sprintf("failed to decode response: %v", err))
	}
	if answer.Suggestions == nil {
		answer.Suggestions = []types.Suggestion{}
	}
	return Success(Ok{ImprovedText: answer.ImprovedText, Suggestions: answer.Suggestions})
}

// extractJSON removes a surrounding Markdown code fence, if any, and returns
// the fence's language tag.
func extractJSON(content string) (body, lang string) {
	if !strings.HasPrefix(content, "```") {
		return content, ""
	}
	rest := content[3:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return content, ""
	}
	lang = strings.ToLower(strings.TrimSpace(rest[:nl]))
	body = rest[nl+1:]
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), lang
}

// looksLikeJSON reports whether body was meant to be JSON: it opens an object
// or array, or sits in a json fence.
func looksLikeJSON(body, lang string) bool {
	return lang == "json" || strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")
}
