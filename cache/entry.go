package cache

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Entry is the serialized form both backends persist.
type Entry struct {
	Method     string              `json:"method"`
	URL        string              `json:"url"`
	StatusCode int                 `json:"status"`
	Header     map[string][]string `json:"header"`
	Body       []byte              `json:"body"`
	StoredAt   time.Time           `json:"stored_at"`
}

func NewEntry(req *Request, resp *Response) *Entry {
	return &Entry{
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       resp.Body,
		StoredAt:   time.Now().UTC(),
	}
}

func (e *Entry) Response() *Response {
	return &Response{
		StatusCode: e.StatusCode,
		Header:     http.Header(e.Header).Clone(),
		Body:       e.Body,
		FromCache:  true,
	}
}

func (e *Entry) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func UnmarshalEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
