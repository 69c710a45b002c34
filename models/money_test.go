package models_test

import (
	"math"
	"testing"

	"pos-payment-service/models"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{50, 5000},
		{19.99, 1999},
		{0.005, 1},
		{63.0, 6300},
	}
	for _, tt := range tests {
		got, err := models.MinorUnits(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMinorUnits_Rejects(t *testing.T) {
	for _, v := range []float64{-0.01, math.NaN(), math.Inf(1), 1e300} {
		_, err := models.MinorUnits(v)
		assert.ErrorIs(t, err, models.ErrInvalidAmount, v)
	}
}

func TestMoney(t *testing.T) {
	m, err := models.NewMoney(2559, " USD ")
	assert.NoError(t, err)
	assert.Equal(t, "usd", m.Currency)
	assert.Equal(t, 25.59, m.Major())
	assert.Equal(t, "25.59 USD", m.String())
	assert.Equal(t, int64(2659), m.Add(models.Money{Amount: 100}).Amount)

	_, err = models.NewMoney(-1, "")
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	line := models.OrderLine{Name: "IPA", UnitPrice: models.Money{Amount: 750, Currency: "usd"}, Quantity: 3}
	total, err := line.LineTotal()
	assert.NoError(t, err)
	assert.Equal(t, int64(2250), total.Amount)

	huge := models.OrderLine{Name: "Cellar", UnitPrice: models.Money{Amount: 1e17}, Quantity: 1 << 30}
	_, err = huge.LineTotal()
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestCheckedCentArithmetic(t *testing.T) {
	sum, err := models.AddCents(5000, 400, 900)
	assert.NoError(t, err)
	assert.Equal(t, int64(6300), sum)

	_, err = models.AddCents(math.MaxInt64, 1)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
	_, err = models.AddCents(100, -1)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	p, err := models.MulCents(750, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), p)

	_, err = models.MulCents(math.MaxInt64/2+1, 2)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestMetadata_ReservedKeysWin(t *testing.T) {
	m := models.Metadata{
		SessionID:   "sess-1",
		VenueID:     "venue-9",
		TableNumber: "12",
		Extra:       map[string]string{"session_id": "spoofed", "server": "alex"},
	}
	out := m.ToMap()
	assert.Equal(t, "sess-1", out["session_id"])
	assert.Equal(t, "alex", out["server"])

	back := models.MetadataFromMap(out)
	assert.Equal(t, "sess-1", back.SessionID)
	assert.Equal(t, "venue-9", back.VenueID)
	assert.Equal(t, map[string]string{"server": "alex"}, back.Extra)
}
