package reqlog

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// captureHeaders copies headers out of the request buffer. Fiber hands out
// strings aliasing fasthttp memory that is reused by the next request.
func captureHeaders(headers map[string][]string, redact map[string]struct{}) map[string]string {
	ret := make(map[string]string, len(headers))
	for name, values := range headers {
		name = utils.CopyString(name)
		if _, ok := redact[strings.ToLower(name)]; ok {
			ret[name] = redacted
			continue
		}
		ret[name] = utils.CopyString(strings.Join(values, ", "))
	}
	return ret
}

// redactBody returns body with sensitive fields masked. Bodies that are
// neither JSON nor form encoded are returned unchanged.
func redactBody(contentType string, body []byte, fields map[string]struct{}) []byte {
	if len(body) == 0 || len(fields) == 0 {
		return body
	}
	contentType = strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		return redactJSON(body, fields)
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		return redactForm(body, fields)
	}
	return body
}

func redactJSON(body []byte, fields map[string]struct{}) []byte {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return body
	}
	if !maskValue(doc, fields) {
		return body
	}
	ret, err := json.Marshal(doc)
	if err != nil {
		return body
	}
	return ret
}

func maskValue(v any, fields map[string]struct{}) bool {
	changed := false
	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			if _, ok := fields[strings.ToLower(key)]; ok {
				val[key] = redacted
				changed = true
				continue
			}
			if maskValue(child, fields) {
				changed = true
			}
		}
	case []any:
		for _, child := range val {
			if maskValue(child, fields) {
				changed = true
			}
		}
	}
	return changed
}

func redactForm(body []byte, fields map[string]struct{}) []byte {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return body
	}
	changed := false
	for key, vals := range values {
		if _, ok := fields[strings.ToLower(key)]; ok {
			for i := range vals {
				vals[i] = redacted
			}
			changed = true
		}
	}
	if !changed {
		return body
	}
	return []byte(values.Encode())
}
