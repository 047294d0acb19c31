package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"
)

// Structured is a JSON payload the model is asked to produce.
type Structured interface {
	Validate() error
}

var (
	reflector = &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	// anonymous types have no definition name to expand
	anonReflector = &jsonschema.Reflector{DoNotReference: true}
)

func emptySchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// Schema reflects v into a JSON schema object suitable for tool parameters
// and response formats. Field descriptions come from `jsonschema` tags.
// Types the reflector cannot handle get an empty object schema.
func Schema(v any) map[string]interface{} {
	s, err := reflectSchema(v)
	if err != nil {
		log.Warn().Err(err).Str("type", fmt.Sprintf("%T", v)).Msg("schema reflection failed")
		return emptySchema()
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return emptySchema()
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return emptySchema()
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]interface{}{}
	}
	return out
}

func reflectSchema(v any) (s *jsonschema.Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reflect %T: %v", v, r)
		}
	}()
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Struct && t.Name() == "" {
		return anonReflector.Reflect(v), nil
	}
	return reflector.Reflect(v), nil
}

// ExtractJSON returns the outermost JSON object in s, tolerating markdown
// fences and prose around it.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		body := s[i+3:]
		body = strings.TrimPrefix(body, "json")
		if j := strings.Index(body, "```"); j >= 0 {
			s = strings.TrimSpace(body[:j])
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// ParseStructured decodes the JSON object found in raw into T and validates it.
func ParseStructured[T Structured](raw string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &out); err != nil {
		return out, &LLMError{Type: ErrorTypeJSONParsingError, Message: err.Error(), Cause: err}
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("validation failed: %w", err)
	}
	return out, nil
}

// ChatStructured asks client for a T, feeding parse or validation errors back
// to the model up to retries times.
func ChatStructured[T Structured](ctx context.Context, client Client, req *ChatRequest, retries int) (T, *Response, error) {
	var zero T
	cp := *req
	cp.Messages = append([]Message(nil), req.Messages...)
	schema, _ := json.Marshal(Schema(zero))
	cp.SystemPrompt = strings.TrimSpace(cp.SystemPrompt + "\n\nRespond only with a JSON object matching this schema:\n" + string(schema))
	cp.ResponseFormat = &ResponseFormat{Type: "json_object"}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		resp, err := client.Chat(ctx, &cp)
		if err != nil {
			return zero, nil, err
		}
		if resp == nil {
			return zero, nil, fmt.Errorf("structured chat: no response from model")
		}
		out, err := ParseStructured[T](resp.Content)
		if err == nil {
			return out, resp, nil
		}
		lastErr = err
		cp.Messages = append(cp.Messages,
			resp.Message(),
			Message{Role: RoleUser, Content: fmt.Sprintf("That response was rejected: %v. Reply with corrected JSON only.", err)},
		)
	}
	return zero, nil, lastErr
}
