package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.NewFromFloat(100.50), KES)
		require.NoError(t, err)
		assert.Equal(t, KES, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromFloat(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestNewMoneyFromString(t *testing.T) {
	t.Run("valid string", func(t *testing.T) {
		m, err := NewMoneyFromString("123.45", KES)
		require.NoError(t, err)
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(123.45)))
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", KES)
		assert.Error(t, err)
	})
}

func TestMoneyArithmetic(t *testing.T) {
	t.Run("add same currency", func(t *testing.T) {
		a := NewMoneyKESFromFloat(100.25)
		b := NewMoneyKESFromFloat(49.75)
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromInt(150)))
	})

	t.Run("add mismatched currency fails", func(t *testing.T) {
		a := NewMoneyKESFromFloat(100)
		b, _ := NewMoney(decimal.NewFromInt(1), USD)
		_, err := a.Add(b)
		assert.Error(t, err)
	})

	t.Run("subtract", func(t *testing.T) {
		a := NewMoneyKESFromFloat(100)
		b := NewMoneyKESFromFloat(40)
		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromInt(60)))
	})

	t.Run("multiply by quantity", func(t *testing.T) {
		unit := NewMoneyKESFromFloat(19.99)
		total := unit.MultiplyByInt(3)
		assert.Equal(t, "59.97", total.StringFixed(2))
	})

	t.Run("divide by zero fails", func(t *testing.T) {
		_, err := NewMoneyKESFromFloat(10).Divide(decimal.Zero)
		assert.Error(t, err)
	})

	t.Run("percentage", func(t *testing.T) {
		m := NewMoneyKESFromFloat(200)
		pct := m.CalculatePercentage(decimal.NewFromInt(15))
		assert.True(t, pct.Amount().Equal(decimal.NewFromInt(30)))
	})
}

func TestMoneyComparison(t *testing.T) {
	a := NewMoneyKESFromFloat(10)
	b := NewMoneyKESFromFloat(20)

	less, err := a.LessThan(b)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := b.GreaterThan(a)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, a.Equals(NewMoneyKESFromFloat(10)))
	assert.False(t, a.Equals(b))
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyKESFromFloat(99.99)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.99","currency":"KES"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	t.Run("scans string value", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan("42.50"))
		assert.True(t, m.Amount().Equal(decimal.NewFromFloat(42.50)))
		assert.Equal(t, DefaultCurrency, m.Currency())
	})

	t.Run("scans nil as zero", func(t *testing.T) {
		var m Money
		require.NoError(t, m.Scan(nil))
		assert.True(t, m.IsZero())
	})
}
