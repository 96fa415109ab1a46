package filter

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
)

func TestParseCriteria_LegacyAndNativeAgree(t *testing.T) {
	native := `{"sourceSystemIds":[7,9],"tags":["env=prod"],"open":true,"acked":false,"maxlevel":2,"event_types":["ACK"]}`
	legacy, err := json.Marshal(native)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	fromNative, err := ParseCriteria([]byte(native))
	if err != nil {
		t.Fatalf("ParseCriteria(native) error = %v", err)
	}
	fromLegacy, err := ParseCriteria(legacy)
	if err != nil {
		t.Fatalf("ParseCriteria(legacy) error = %v", err)
	}

	if !reflect.DeepEqual(fromNative, fromLegacy) {
		t.Errorf("legacy form decoded to %+v, native to %+v", fromLegacy, fromNative)
	}
	if fromNative.Acked == nil || *fromNative.Acked {
		t.Errorf("Acked = %v, want explicit false", fromNative.Acked)
	}
	if fromNative.Stateful != nil {
		t.Errorf("Stateful = %v, want unset", *fromNative.Stateful)
	}
}

func TestCriteria_LegacyRoundTrip(t *testing.T) {
	c := Criteria{
		SourceSystemIDs: []int64{1},
		Tags:            []string{"a=b", "c=d=e"},
		Open:            Bool(false),
		Stateful:        Bool(true),
		MaxLevel:        Int(4),
		EventTypes:      []incident.EventType{incident.EventClose, incident.EventReopen},
	}

	got, err := ParseLegacy(c.Legacy())
	if err != nil {
		t.Fatalf("ParseLegacy() error = %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Errorf("ParseLegacy(Legacy()) = %+v, want %+v", got, c)
	}
}

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Criteria
		wantErr bool
	}{
		{name: "empty object", input: `{}`, want: Criteria{}},
		{name: "null", input: `null`, want: Criteria{}},
		{name: "empty legacy string", input: `""`, want: Criteria{}},
		{name: "null tri-state is unset", input: `{"open":null}`, want: Criteria{}},
		{name: "empty lists normalize to unset", input: `{"tags":[],"sourceSystemIds":[]}`, want: Criteria{}},
		{name: "camel case event types alias", input: `{"eventTypes":["STA"]}`, want: Criteria{EventTypes: []incident.EventType{incident.EventIncidentStart}}},
		{name: "duplicates removed", input: `{"sourceSystemIds":[3,3,4]}`, want: Criteria{SourceSystemIDs: []int64{3, 4}}},
		{name: "unknown key", input: `{"severity":1}`, wantErr: true},
		{name: "tri-state wrong type", input: `{"acked":"no"}`, wantErr: true},
		{name: "maxlevel not an integer", input: `{"maxlevel":2.5}`, wantErr: true},
		{name: "ids wrong element type", input: `{"sourceSystemIds":["a"]}`, wantErr: true},
		{name: "legacy nested twice", input: `"\"{}\""`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCriteria([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCriteria() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCriteria() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilter_UnmarshalLegacyField(t *testing.T) {
	var f Filter
	body := `{"name":"prod","filter":"{\"tags\":[\"env=prod\"]}"}`
	if err := json.Unmarshal([]byte(body), &f); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(f.Criteria.Tags, []string{"env=prod"}) {
		t.Errorf("Tags = %v, want [env=prod]", f.Criteria.Tags)
	}

	out, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := generic["filter"].(map[string]interface{}); !ok {
		t.Errorf("filter marshalled as %T, want native object", generic["filter"])
	}
}
