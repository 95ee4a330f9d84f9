package connector

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"payhub/internal/masking"
)

type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderAccept        = "Accept"
	HeaderVia           = "Via"
	HeaderXAPIKey       = "X-API-KEY"
)

// Header is one outbound header. Sensitive values are redacted in snapshots.
type Header struct {
	Name  string
	Value masking.Maskable
}

func PlainHeader(name, value string) Header {
	return Header{Name: name, Value: masking.Normal(value)}
}

func SecretHeader(name, value string) Header {
	return Header{Name: name, Value: masking.Masked(value)}
}

// BodyKind tells the executor how a body is encoded.
type BodyKind uint8

const (
	BodyJSON BodyKind = iota + 1
	BodyFormURLEncoded
	BodyXML
	BodyFormData
	BodyRawBytes
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyFormURLEncoded:
		return "form_url_encoded"
	case BodyXML:
		return "xml"
	case BodyFormData:
		return "form_data"
	case BodyRawBytes:
		return "raw_bytes"
	}
	return "unknown"
}

// RequestContent is an outbound body. Encode produces the wire bytes;
// Masked produces the redacted snapshot used by logs and events.
type RequestContent interface {
	Kind() BodyKind
	// Encode returns the wire bytes and, when the encoding dictates one,
	// the content type to send (multipart needs its boundary).
	Encode() ([]byte, string, error)
	Masked() any
}

var maskFailed = map[string]any{"error": "failed to mask serialize"}

// JSONBody serializes V with encoding/json.
type JSONBody struct{ V any }

func (JSONBody) Kind() BodyKind { return BodyJSON }

func (b JSONBody) Encode() ([]byte, string, error) {
	out, err := json.Marshal(b.V)
	if err != nil {
		return nil, "", RequestEncodingFailed(err)
	}
	return out, "", nil
}

func (b JSONBody) Masked() any { return masking.SerializeOr(b.V, maskFailed) }

// FormURLEncodedBody serializes V as application/x-www-form-urlencoded.
// Nested objects flatten to bracketed keys: card[number]=..., items[0]=...
type FormURLEncodedBody struct{ V any }

func (FormURLEncodedBody) Kind() BodyKind { return BodyFormURLEncoded }

func (b FormURLEncodedBody) Encode() ([]byte, string, error) {
	raw, err := json.Marshal(b.V)
	if err != nil {
		return nil, "", RequestEncodingFailed(err)
	}
	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return nil, "", RequestEncodingFailed(err)
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, "", RequestEncodingFailed(fmt.Errorf("form body must be an object, got %T", tree))
	}
	vals := url.Values{}
	flatten("", obj, vals)
	return []byte(vals.Encode()), "", nil
}

func (b FormURLEncodedBody) Masked() any { return masking.SerializeOr(b.V, maskFailed) }

func flatten(prefix string, v any, out url.Values) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			name := k
			if prefix != "" {
				name = prefix + "[" + k + "]"
			}
			flatten(name, t[k], out)
		}
	case []any:
		for i, item := range t {
			flatten(prefix+"["+strconv.Itoa(i)+"]", item, out)
		}
	case nil:
	case string:
		out.Add(prefix, t)
	case json.Number:
		out.Add(prefix, t.String())
	case bool:
		out.Add(prefix, strconv.FormatBool(t))
	default:
		out.Add(prefix, fmt.Sprint(t))
	}
}

// XMLBody serializes V with encoding/xml and the standard header.
type XMLBody struct{ V any }

func (XMLBody) Kind() BodyKind { return BodyXML }

func (b XMLBody) Encode() ([]byte, string, error) {
	out, err := xml.Marshal(b.V)
	if err != nil {
		return nil, "", RequestEncodingFailed(err)
	}
	return append([]byte(xml.Header), out...), "", nil
}

func (b XMLBody) Masked() any { return masking.SerializeOr(b.V, maskFailed) }

// FormField is one part of a multipart body. Fields with a FileName are
// sent as file parts.
type FormField struct {
	Name     string
	Value    string
	FileName string
	Content  []byte
}

// FormDataBody is a multipart/form-data body. Its snapshot never includes
// the content.
type FormDataBody struct{ Fields []FormField }

func (FormDataBody) Kind() BodyKind { return BodyFormData }

func (b FormDataBody) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range b.Fields {
		if f.FileName != "" {
			part, err := w.CreateFormFile(f.Name, f.FileName)
			if err != nil {
				return nil, "", RequestEncodingFailed(err)
			}
			if _, err := part.Write(f.Content); err != nil {
				return nil, "", RequestEncodingFailed(err)
			}
			continue
		}
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", RequestEncodingFailed(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", RequestEncodingFailed(err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (FormDataBody) Masked() any { return map[string]any{"request_type": "FORM_DATA"} }

// RawBytesBody is sent as is.
type RawBytesBody []byte

func (RawBytesBody) Kind() BodyKind { return BodyRawBytes }

func (b RawBytesBody) Encode() ([]byte, string, error) { return []byte(b), "", nil }

func (RawBytesBody) Masked() any { return map[string]any{"request_type": "RAW_BYTES"} }

// Request is a fully built outbound call, ready for an Executor. Building
// one acquires no resources, so it can be discarded at any point.
type Request struct {
	Method  Method
	URL     string
	Headers []Header
	Body    RequestContent
}

// Header returns the first header named name.
func (r *Request) Header(name string) (masking.Maskable, bool) {
	for _, h := range r.Headers {
		if http.CanonicalHeaderKey(h.Name) == http.CanonicalHeaderKey(name) {
			return h.Value, true
		}
	}
	return masking.Maskable{}, false
}

// MaskedHeaders is the header snapshot with sensitive values redacted.
func (r *Request) MaskedHeaders() map[string]string {
	out := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		out[h.Name] = h.Value.String()
	}
	return out
}

// MaskedBody is the body snapshot, nil when there is no body.
func (r *Request) MaskedBody() any {
	if r.Body == nil {
		return nil
	}
	return r.Body.Masked()
}

// RequestBuilder assembles a Request step by step.
type RequestBuilder struct {
	req Request
}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: Request{Method: MethodGet}}
}

func (b *RequestBuilder) Method(m Method) *RequestBuilder {
	b.req.Method = m
	return b
}

func (b *RequestBuilder) URL(u string) *RequestBuilder {
	b.req.URL = u
	return b
}

// AttachDefaultHeaders adds the headers every outbound call carries.
func (b *RequestBuilder) AttachDefaultHeaders() *RequestBuilder {
	b.req.Headers = append(b.req.Headers, PlainHeader(HeaderVia, "payhub"))
	return b
}

func (b *RequestBuilder) Headers(hs []Header) *RequestBuilder {
	b.req.Headers = append(b.req.Headers, hs...)
	return b
}

func (b *RequestBuilder) Body(c RequestContent) *RequestBuilder {
	b.req.Body = c
	return b
}

func (b *RequestBuilder) Build() *Request {
	out := b.req
	out.Headers = append([]Header(nil), b.req.Headers...)
	return &out
}
