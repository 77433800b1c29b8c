package attribution

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/AngelCh415/attribution-etl/internal/models"
	"github.com/AngelCh415/attribution-etl/internal/utm"
)

const (
	maxSamples = 50
	rawPreview = 500
	noPayload  = "No data"
)

// InvestigationSamples picks up to 50 evenly spaced orders and returns their
// raw attribution payloads, pretty-printed when they are valid JSON.
func InvestigationSamples(orders []models.Order) []models.InvestigationSample {
	out := []models.InvestigationSample{}
	if len(orders) == 0 {
		return out
	}
	n := min(maxSamples, len(orders))
	step := max(1, len(orders)/n)
	for i := 0; i < len(orders) && len(out) < n; i += step {
		o := orders[i]
		hasJourney := !utm.IsNullLike(o.CustomerJourney)
		hasAttrs := !utm.IsNullLike(o.CustomAttributes) && strings.TrimSpace(o.CustomAttributes) != "[]"
		out = append(out, models.InvestigationSample{
			OrderID:             o.ID,
			OrderName:           o.Name,
			OrderDate:           o.CreatedAt,
			OrderValue:          o.TotalPrice,
			CustomerJourney:     preview(o.CustomerJourney, hasJourney),
			CustomAttributes:    preview(o.CustomAttributes, hasAttrs),
			UTMSource:           o.UTMSource,
			UTMMedium:           o.UTMMedium,
			UTMCampaign:         o.UTMCampaign,
			UTMContent:          o.UTMContent,
			UTMTerm:             o.UTMTerm,
			ReferrerURL:         o.ReferrerURL,
			HasCustomerJourney:  hasJourney,
			HasCustomAttributes: hasAttrs,
			JourneyLength:       len(o.CustomerJourney),
			AttributesLength:    len(o.CustomAttributes),
		})
	}
	return out
}

func preview(raw string, present bool) string {
	if !present {
		return noPayload
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err == nil {
		return buf.String()
	}
	if len(raw) > rawPreview {
		return raw[:rawPreview] + "..."
	}
	return raw
}
