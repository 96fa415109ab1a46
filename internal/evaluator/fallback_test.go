package evaluator

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

func TestLoadFallback(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name        string
		raw         string
		wantWarning bool
		check       func(t *testing.T, c filter.Criteria)
	}{
		{
			name: "empty",
			raw:  "  ",
			check: func(t *testing.T, c filter.Criteria) {
				if !NoFallback().IsEmpty(c) {
					t.Errorf("got %+v, want no criteria", c)
				}
			},
		},
		{
			name: "json",
			raw:  `{"acked": false, "maxlevel": 3}`,
			check: func(t *testing.T, c filter.Criteria) {
				if c.Acked == nil || *c.Acked || c.MaxLevel == nil || *c.MaxLevel != 3 {
					t.Errorf("got %s", c.Legacy())
				}
			},
		},
		{
			name: "yaml",
			raw:  "tags:\n  - env=prod\nevent_types: [STA, END]\n",
			check: func(t *testing.T, c filter.Criteria) {
				if len(c.Tags) != 1 || c.Tags[0] != "env=prod" {
					t.Errorf("Tags = %v", c.Tags)
				}
				if len(c.EventTypes) != 2 || c.EventTypes[1] != incident.EventIncidentEnd {
					t.Errorf("EventTypes = %v", c.EventTypes)
				}
			},
		},
		{
			name: "yaml flow mapping",
			raw:  "{open: true, maxlevel: 2}",
			check: func(t *testing.T, c filter.Criteria) {
				if c.Open == nil || !*c.Open || c.MaxLevel == nil || *c.MaxLevel != 2 {
					t.Errorf("got %s", c.Legacy())
				}
			},
		},
		{name: "broken json", raw: `{"maxlevel": 2,`, wantWarning: true},
		{name: "not a mapping", raw: `[1, 2]`, wantWarning: true},
		{name: "unknown key", raw: `{"priority": 1}`, wantWarning: true},
		{name: "maxlevel out of range", raw: `{"maxlevel": 9}`, wantWarning: true},
		{name: "malformed tag", raw: `{"tags": ["nokey"]}`, wantWarning: true},
		{name: "unknown event type", raw: `{"event_types": ["XYZ"]}`, wantWarning: true},
		{name: "yaml sequence", raw: "- a\n- b\n", wantWarning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadFallback([]byte(tt.raw), v)
			if tt.wantWarning {
				var warning *errors.ConfigWarning
				if !stderrors.As(err, &warning) {
					t.Fatalf("LoadFallback() error = %v, want *errors.ConfigWarning", err)
				}
				if warning.Setting != FallbackSetting {
					t.Errorf("Setting = %q, want %q", warning.Setting, FallbackSetting)
				}
				if !NoFallback().IsEmpty(c) {
					t.Errorf("rejected fallback still produced criteria %s", c.Legacy())
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadFallback() error = %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestNewFromConfig_InvalidFallbackIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "warn", Format: "json", Writer: &buf})

	eval := NewFromConfig([]byte(`{"maxlevel": 0}`), log)

	if !eval.IsEmpty(filter.Criteria{}) {
		t.Error("evaluator kept an invalid fallback")
	}
	if !strings.Contains(buf.String(), FallbackSetting) {
		t.Errorf("expected a warning naming %s, got %q", FallbackSetting, buf.String())
	}
}

func TestNewFromConfig_ValidFallback(t *testing.T) {
	eval := NewFromConfig([]byte(`{"stateful": true}`), logger.Nop())

	if eval.IsEmpty(filter.Criteria{}) {
		t.Fatal("valid fallback was dropped")
	}
	if eval.IncidentFits(filter.Criteria{}, &incident.Incident{Stateful: false}) {
		t.Error("fallback stateful=true should reject stateless incidents")
	}
}
