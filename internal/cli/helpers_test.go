package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemSpec(t *testing.T) {
	item, err := parseItemSpec("Cement:bag:2.5:1,250")
	require.NoError(t, err)
	assert.Equal(t, "Cement", item.Name)
	assert.Equal(t, "bag", item.Unit)
	assert.Equal(t, "2.5", item.Quantity.String())
	assert.Equal(t, "1250", item.UnitPrice.String())
	assert.Equal(t, "3125", item.TotalPrice.String())

	// Colons inside the name are kept
	item, err = parseItemSpec("Pipe 1:2 ratio:ft:10:3")
	require.NoError(t, err)
	assert.Equal(t, "Pipe 1:2 ratio", item.Name)
	assert.Equal(t, "ft", item.Unit)

	_, err = parseItemSpec("Cement:bag:2")
	assert.Error(t, err)

	_, err = parseItemSpec("Cement:bag:two:10")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), d)

	today, err := parseDate("today")
	require.NoError(t, err)
	yesterday, err := parseDate("yesterday")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, today.Sub(yesterday))

	_, err = parseDate("15/03/2024")
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	id, err := parseID("invoice", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("invoice", "0")
	assert.Error(t, err)
	_, err = parseID("invoice", "abc")
	assert.Error(t, err)
}
