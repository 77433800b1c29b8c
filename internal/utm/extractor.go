// Package utm turns the three per-order attribution payloads (customer
// journey, custom attributes, direct UTM columns) into one normalized
// AttributionRecord.
package utm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utils"
)

// ErrParseFailed wraps malformed journey/attribute payloads.
var ErrParseFailed = errors.New("utm: parse failed")

// IsNullLike reports whether a raw payload should be treated as absent.
func IsNullLike(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "null", "None":
		return true
	}
	return false
}

func isEmptyAttributes(raw string) bool {
	return IsNullLike(raw) || strings.TrimSpace(raw) == "[]"
}

// value accepts strings, numbers and booleans; ad ids are sometimes sent unquoted.
type value string

func (v *value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*v = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = value(s)
	case len(b) > 0 && (b[0] == '{' || b[0] == '['):
		return fmt.Errorf("unexpected %c in utm value", b[0])
	default:
		*v = value(b)
	}
	return nil
}

type utmParameters struct {
	Source   value `json:"source"`
	Medium   value `json:"medium"`
	Campaign value `json:"campaign"`
	Content  value `json:"content"`
	Term     value `json:"term"`
}

func (p *utmParameters) empty() bool {
	return p == nil || (p.Source == "" && p.Medium == "" && p.Campaign == "" && p.Content == "" && p.Term == "")
}

type journey struct {
	Moments []*struct {
		UTMParameters *utmParameters `json:"utmParameters"`
	} `json:"moments"`
}

type attribute struct {
	Key   *string `json:"key"`
	Value *value  `json:"value"`
}

// usable is the priority-field filter shared by all extractors.
func usable(s string, rejectTemplates bool) bool {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return false
	}
	return !rejectTemplates || !strings.HasPrefix(s, "{{")
}

// pick fills AttributionID/Type by content > campaign > medium.
func pick(rec *models.AttributionRecord, rejectTemplates bool) bool {
	switch {
	case usable(rec.Content, rejectTemplates):
		rec.AttributionID, rec.AttributionType = rec.Content, models.AttributionContent
	case usable(rec.Campaign, rejectTemplates):
		rec.AttributionID, rec.AttributionType = rec.Campaign, models.AttributionCampaign
	case usable(rec.Medium, rejectTemplates):
		rec.AttributionID, rec.AttributionType = rec.Medium, models.AttributionMedium
	default:
		return false
	}
	return true
}

// ParseCustomerJourney scans moments newest-first and returns the first one
// whose utmParameters yield an attribution id. (nil, nil) means no attribution.
func ParseCustomerJourney(raw string) (*models.AttributionRecord, error) {
	if IsNullLike(raw) {
		return nil, nil
	}
	var j journey
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return nil, fmt.Errorf("%w: customer journey: %v", ErrParseFailed, err)
	}
	for i := len(j.Moments) - 1; i >= 0; i-- {
		m := j.Moments[i]
		if m == nil || m.UTMParameters.empty() {
			continue
		}
		p := m.UTMParameters
		rec := models.AttributionRecord{
			Source:   string(p.Source),
			Medium:   string(p.Medium),
			Campaign: string(p.Campaign),
			Content:  string(p.Content),
			Term:     string(p.Term),
		}
		if pick(&rec, true) {
			return &rec, nil
		}
	}
	return nil, nil
}

// ParseCustomAttributes reads utm_* keys (plus fbclid/gclid) from a
// [{key,value}] array. Elements that are not key/value objects are ignored.
func ParseCustomAttributes(raw string) (*models.AttributionRecord, error) {
	if isEmptyAttributes(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: custom attributes: %v", ErrParseFailed, err)
	}
	data := map[string]string{}
	for _, it := range items {
		var a attribute
		if err := json.Unmarshal(it, &a); err != nil || a.Key == nil || a.Value == nil {
			continue
		}
		k := *a.Key
		if strings.HasPrefix(k, "utm_") || k == "fbclid" || k == "gclid" {
			data[k] = string(*a.Value)
		}
	}
	if len(data) == 0 {
		return nil, nil
	}
	rec := models.AttributionRecord{
		Source:   data["utm_source"],
		Medium:   data["utm_medium"],
		Campaign: data["utm_campaign"],
		Content:  data["utm_content"],
		Term:     data["utm_term"],
	}
	if !pick(&rec, false) {
		return nil, nil
	}
	return &rec, nil
}

// FromDirectColumns uses the five discrete utm_* order fields.
func FromDirectColumns(o models.Order) *models.AttributionRecord {
	clean := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return ""
		}
		return s
	}
	rec := models.AttributionRecord{
		Source:   clean(o.UTMSource),
		Medium:   clean(o.UTMMedium),
		Campaign: clean(o.UTMCampaign),
		Content:  clean(o.UTMContent),
		Term:     clean(o.UTMTerm),
	}
	if !pick(&rec, false) {
		return nil
	}
	return &rec
}

type Extractor struct {
	log *slog.Logger
}

func NewExtractor(log *slog.Logger) *Extractor {
	if log == nil {
		log = utils.NopLogger()
	}
	return &Extractor{log: log}
}

// Extract tries journey, then custom attributes, then direct columns and
// stops at the first that yields a record.
func (e *Extractor) Extract(o models.Order) (*models.AttributionRecord, models.AttributionSource) {
	rec, err := ParseCustomerJourney(o.CustomerJourney)
	if err != nil {
		e.log.Warn("customer journey unreadable", slog.String("order_id", o.ID), slog.String("err", err.Error()))
	} else if rec != nil {
		return rec, models.SourceCustomerJourney
	}

	rec, err = ParseCustomAttributes(o.CustomAttributes)
	if err != nil {
		e.log.Warn("custom attributes unreadable", slog.String("order_id", o.ID), slog.String("err", err.Error()))
	} else if rec != nil {
		return rec, models.SourceCustomAttributes
	}

	if rec := FromDirectColumns(o); rec != nil {
		return rec, models.SourceDirectUTM
	}
	return nil, models.SourceNone
}
