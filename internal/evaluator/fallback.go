package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pratik-mahalle/alertroute/internal/domain/filter"
	"github.com/pratik-mahalle/alertroute/internal/pkg/errors"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/validator"
)

// FallbackSetting names the fallback in warnings
const FallbackSetting = "FALLBACK_FILTER"

// ValidateCriteria returns the validation problems of c
func ValidateCriteria(v *validator.Validator, c filter.Criteria) []validator.ValidationError {
	return v.Validate(c)
}

// LoadFallback parses and validates a fallback document in JSON or YAML.
// An empty document yields no fallback. Any problem is returned as a
// *errors.ConfigWarning together with empty criteria.
func LoadFallback(raw []byte, v *validator.Validator) (filter.Criteria, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return filter.Criteria{}, nil
	}

	doc, err := toJSON(raw)
	if err != nil {
		return filter.Criteria{}, &errors.ConfigWarning{Setting: FallbackSetting, Problems: []string{err.Error()}}
	}

	c, err := filter.ParseCriteria(doc)
	if err != nil {
		return filter.Criteria{}, &errors.ConfigWarning{Setting: FallbackSetting, Problems: []string{err.Error()}}
	}

	if problems := ValidateCriteria(v, c); len(problems) > 0 {
		msgs := make([]string, 0, len(problems))
		for _, p := range problems {
			msgs = append(msgs, p.Message)
		}
		return filter.Criteria{}, &errors.ConfigWarning{Setting: FallbackSetting, Problems: msgs}
	}

	return c, nil
}

// NewFromConfig builds the process evaluator. An invalid fallback is logged
// as a warning and replaced by no fallback.
func NewFromConfig(raw []byte, log *logger.Logger) *Evaluator {
	c, err := LoadFallback(raw, validator.New())
	if err != nil {
		log.WithFields(map[string]interface{}{
			"setting": FallbackSetting,
		}).WarnWithErr(err, "Fallback filter rejected, continuing without fallback")
		return NoFallback()
	}
	if len(raw) > 0 {
		log.With("fallback", c.Legacy()).Info("Fallback filter loaded")
	}
	return New(c)
}

// toJSON converts a YAML document into JSON. Valid JSON passes through;
// anything else, including flow mappings like {open: true}, is read as YAML.
func toJSON(raw []byte) ([]byte, error) {
	if json.Valid(raw) {
		return raw, nil
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("fallback filter is neither JSON nor YAML: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("fallback filter must be a mapping")
	}
	return json.Marshal(doc)
}
