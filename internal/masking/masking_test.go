package masking

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

type card struct {
	Number Secret `json:"number"`
	Holder string `json:"holder"`
	CVC    string `json:"cvc" mask:"true"`
	Note   string `json:"note,omitempty"`
	Hidden string `json:"-"`
}

type order struct {
	Card    card              `json:"card"`
	Items   []string          `json:"items"`
	Meta    map[string]Secret `json:"meta"`
	Created time.Time         `json:"created"`
	Ref     *string           `json:"ref"`
}

func TestSecretNeverFormats(t *testing.T) {
	t.Parallel()

	s := Secret("sk_live_123")
	if got := fmt.Sprintf("%v %s %+v %#v", s, s, s, s); got != Marker+" "+Marker+" "+Marker+" "+Marker {
		t.Fatalf("secret leaked through fmt: %q", got)
	}
	if s.Expose() != "sk_live_123" {
		t.Fatalf("expose returned %q", s.Expose())
	}
}

func TestSecretKeepsWireValue(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(card{Number: "4111111111111111", CVC: "123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["number"] != "4111111111111111" {
		t.Fatalf("wire value altered: %v", back["number"])
	}
}

func TestSerializeRedactsNestedValues(t *testing.T) {
	t.Parallel()

	o := order{
		Card:    card{Number: "4111111111111111", Holder: "Ada", CVC: "123", Hidden: "x"},
		Items:   []string{"a", "b"},
		Meta:    map[string]Secret{"token": "tok_1"},
		Created: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out, err := Serialize(o)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	c := m["card"].(map[string]any)

	if c["number"] != Marker {
		t.Fatalf("number not masked: %v", c["number"])
	}
	if c["cvc"] != Marker {
		t.Fatalf("tagged field not masked: %v", c["cvc"])
	}
	if c["holder"] != "Ada" {
		t.Fatalf("plain field altered: %v", c["holder"])
	}
	if _, ok := c["note"]; ok {
		t.Fatal("omitempty field present")
	}
	if _, ok := c["Hidden"]; ok {
		t.Fatal("json:\"-\" field present")
	}
	if m["meta"].(map[string]any)["token"] != Marker {
		t.Fatalf("map secret not masked: %v", m["meta"])
	}
	if m["created"] != "2024-01-02T03:04:05Z" {
		t.Fatalf("time not serialized via json: %v", m["created"])
	}
	if m["ref"] != nil {
		t.Fatalf("nil pointer should serialize to nil, got %v", m["ref"])
	}
}

// gateway is a named scalar that marshals to a wire name, like a connector id.
type gateway uint8

func (g gateway) MarshalText() ([]byte, error) {
	if g == 0 {
		return nil, fmt.Errorf("undeclared gateway")
	}
	return []byte(fmt.Sprintf("gw_%d", g)), nil
}

func TestSerializeUsesTextMarshalers(t *testing.T) {
	t.Parallel()

	out, err := Serialize(struct {
		Gateway gateway   `json:"gateway"`
		Unset   gateway   `json:"unset"`
		List    []gateway `json:"list"`
	}{Gateway: 7, List: []gateway{1, 2}})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	m := out.(map[string]any)
	if m["gateway"] != "gw_7" {
		t.Fatalf("named scalar not serialized via MarshalText: %v", m["gateway"])
	}
	if m["unset"] != uint64(0) {
		t.Fatalf("unmarshalable scalar should fall back to its raw value, got %v", m["unset"])
	}
	if l := m["list"].([]any); l[0] != "gw_1" || l[1] != "gw_2" {
		t.Fatalf("slice elements not serialized via MarshalText: %v", l)
	}
}

func TestSerializeUnsupportedKind(t *testing.T) {
	t.Parallel()

	_, err := Serialize(struct{ C chan int }{C: make(chan int)})
	if err == nil {
		t.Fatal("expected error for channel field")
	}

	fallback := map[string]any{"error": "failed to mask serialize"}
	got := SerializeOr(struct{ F func() }{F: func() {}}, fallback)
	if got.(map[string]any)["error"] != "failed to mask serialize" {
		t.Fatalf("fallback not used: %v", got)
	}
}

func TestMaskable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    Maskable
		want string
	}{
		{name: "normal", m: Normal("application/json"), want: "application/json"},
		{name: "masked", m: Masked("Bearer abc"), want: Marker},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.m.String(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			out, err := Serialize(tt.m)
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			if out != tt.want {
				t.Fatalf("expected snapshot %q, got %v", tt.want, out)
			}
		})
	}
	if Masked("Bearer abc").Expose() != "Bearer abc" {
		t.Fatal("expose must return real value")
	}
}
