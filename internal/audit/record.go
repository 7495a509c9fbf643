package audit

import (
	"encoding/json"
	"strconv"
	"time"
)

// RequestRecord is one audit entry summarizing a single request/response
// exchange. It is owned by the interceptor of its request until emitted and
// must not be mutated afterwards.
type RequestRecord struct {
	Timestamp      time.Time         `json:"timestamp"`
	RequestID      string            `json:"requestId,omitempty"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	AccountID      uint              `json:"accountId,omitempty"`
	RequestHeaders map[string]string `json:"requestHeaders"`
	RequestBody    Body              `json:"requestBody,omitempty"`
	ResponseStatus int               `json:"responseStatus"`
	ResponseTime   time.Duration     `json:"-"`
	ResponseBody   Body              `json:"responseBody,omitempty"`
	ResponseBytes  int64             `json:"responseBytes"`
	Truncated      bool              `json:"truncated,omitempty"`
	Aborted        bool              `json:"aborted,omitempty"`
}

// Body is a captured payload. Valid JSON is embedded as-is, anything else
// is encoded as a string.
type Body []byte

func (b Body) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	if json.Valid(b) {
		return b, nil
	}
	return json.Marshal(string(b))
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Body(s)
		return nil
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (r *RequestRecord) MarshalJSON() ([]byte, error) {
	type plain RequestRecord
	return json.Marshal(struct {
		*plain
		ResponseTime string `json:"responseTime"`
	}{
		plain:        (*plain)(r),
		ResponseTime: formatMillis(r.ResponseTime),
	})
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
