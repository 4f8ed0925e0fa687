package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateTime(t *testing.T) {
	got, err := ParseDateTime(" 2024-02-29 13:45:00 ", time.UTC)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2024, 2, 29, 13, 45, 0, 0, time.UTC)))

	got, err = ParseDateTime("", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDateTime("2024-02-29T13:45:00Z", time.UTC)
	assert.Error(t, err)
}

func TestFormatDateTime(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	ts := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)

	assert.Equal(t, "2024-01-01 08:30:00", FormatDateTime(&ts, shanghai))
	assert.Equal(t, "", FormatDateTime(nil, shanghai))
	assert.Equal(t, "", FormatDateTime(&time.Time{}, shanghai))
}
