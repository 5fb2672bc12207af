package extract

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/ppiankov/sepcheck/internal/model"
)

//go:embed schema/record.schema.json
var recordSchemaJSON []byte

var recordSchema = mustCompile(recordSchemaJSON)

// objectPattern grabs the outermost {...} span; models often wrap the
// payload in prose or code fences.
var objectPattern = regexp.MustCompile(`(?s)\{.*\}`)

func mustCompile(data []byte) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("compile record schema: %v", err))
	}
	return schema
}

// ParsePayload turns a collaborator response into a record. Every failure
// is returned as *model.ExtractionError so that callers can surface it
// verbatim and skip evaluation.
func ParsePayload(content string) (*model.BeneficiaryRecord, error) {
	raw := objectPattern.FindString(content)
	if raw == "" {
		return nil, &model.ExtractionError{Message: "response does not contain valid JSON."}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &model.ExtractionError{Message: fmt.Sprintf("response is not a JSON object: %v", err)}
	}

	if msg, ok := errorSignal(fields); ok {
		return nil, &model.ExtractionError{Message: msg}
	}

	result := recordSchema.ValidateJSON([]byte(raw))
	if !result.IsValid() {
		return nil, &model.ExtractionError{Message: fmt.Sprintf("payload failed schema validation: %v", result.Errors)}
	}

	if err := flattenElections(fields); err != nil {
		return nil, &model.ExtractionError{Message: err.Error()}
	}
	coerceToString(fields, "contract_code", "pbp")

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, &model.ExtractionError{Message: fmt.Sprintf("re-encode payload: %v", err)}
	}

	var rec model.BeneficiaryRecord
	if err := json.Unmarshal(normalized, &rec); err != nil {
		return nil, &model.ExtractionError{Message: fmt.Sprintf("decode record: %v", err)}
	}
	return &rec, nil
}

// errorSignal detects the collaborator's explicit {"error": "..."} reply.
func errorSignal(fields map[string]json.RawMessage) (string, bool) {
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return strings.TrimSpace(string(raw)), true
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", false
	}
	return msg, true
}

// flattenElections rewrites object entries of recent_elections as
// "key: value" text so they can be substring-matched like plain entries.
func flattenElections(fields map[string]json.RawMessage) error {
	raw, ok := fields["recent_elections"]
	if !ok || string(raw) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("recent_elections: %v", err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("recent_elections entry: %v", err)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, obj[k]))
		}
		out = append(out, strings.Join(parts, ", "))
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	fields["recent_elections"] = b
	return nil
}

// coerceToString rewrites bare numbers as strings; all-digit contract and
// PBP codes sometimes come back unquoted.
func coerceToString(fields map[string]json.RawMessage, keys ...string) {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		if b, err := json.Marshal(n.String()); err == nil {
			fields[k] = b
		}
	}
}
