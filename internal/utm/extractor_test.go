package utm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

func TestParseCustomerJourney(t *testing.T) {
	t.Run("newest usable moment wins", func(t *testing.T) {
		raw := `{"moments":[
			{"utmParameters":{"source":"google","content":"111"}},
			{"utmParameters":{"source":"fb","campaign":"{{campaign.id}}","medium":"222"}}]}`
		rec, err := ParseCustomerJourney(raw)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "222", rec.AttributionID)
		assert.Equal(t, models.AttributionMedium, rec.AttributionType)
		assert.Equal(t, "fb", rec.Source)
	})
	t.Run("falls back past moments without an id", func(t *testing.T) {
		rec, err := ParseCustomerJourney(`{"moments":[{"utmParameters":{"content":"111"}},{"utmParameters":{"source":"direct"}},null]}`)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "111", rec.AttributionID)
		assert.Equal(t, models.AttributionContent, rec.AttributionType)
	})
	t.Run("unquoted numeric id", func(t *testing.T) {
		rec, err := ParseCustomerJourney(`{"moments":[{"utmParameters":{"content":120210000000000000}}]}`)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "120210000000000000", rec.AttributionID)
	})
	t.Run("absent", func(t *testing.T) {
		for _, raw := range []string{"", "null", "None", `{"moments":[]}`} {
			rec, err := ParseCustomerJourney(raw)
			assert.NoError(t, err)
			assert.Nil(t, rec, raw)
		}
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := ParseCustomerJourney("{")
		assert.ErrorIs(t, err, ErrParseFailed)
	})
}

func TestParseCustomAttributes(t *testing.T) {
	rec, err := ParseCustomAttributes(`[{"key":"utm_source","value":"ig"},{"key":"utm_content","value":987},"junk",{"key":"other","value":"1"}]`)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "ig", rec.Source)
	assert.Equal(t, "987", rec.AttributionID)
	assert.Equal(t, models.AttributionContent, rec.AttributionType)

	rec, err = ParseCustomAttributes(`[{"key":"fbclid","value":"abc"}]`)
	assert.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = ParseCustomAttributes("[]")
	assert.NoError(t, err)
	assert.Nil(t, rec)

	_, err = ParseCustomAttributes("not json")
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestFromDirectColumns(t *testing.T) {
	rec := FromDirectColumns(models.Order{UTMSource: "facebook", UTMMedium: "  ", UTMCampaign: "55"})
	require.NotNil(t, rec)
	assert.Equal(t, "55", rec.AttributionID)
	assert.Equal(t, models.AttributionCampaign, rec.AttributionType)
	assert.Empty(t, rec.Medium)

	assert.Nil(t, FromDirectColumns(models.Order{UTMSource: "google"}))
}

func TestExtract_SourcePriority(t *testing.T) {
	e := NewExtractor(nil)

	rec, src := e.Extract(models.Order{
		ID:               "1",
		CustomerJourney:  "{broken",
		CustomAttributes: `[{"key":"utm_campaign","value":"77"}]`,
		UTMContent:       "99",
	})
	require.NotNil(t, rec)
	assert.Equal(t, models.SourceCustomAttributes, src)
	assert.Equal(t, "77", rec.AttributionID)

	rec, src = e.Extract(models.Order{ID: "2", UTMContent: "99"})
	require.NotNil(t, rec)
	assert.Equal(t, models.SourceDirectUTM, src)

	rec, src = e.Extract(models.Order{ID: "3"})
	assert.Nil(t, rec)
	assert.Equal(t, models.SourceNone, src)
}
