package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ledger/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewProduct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := NewProduct("WATER", "Water", 12)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.True(t, p.AvgCost.IsZero())
	})

	t.Run("rejects empty code and zero factor", func(t *testing.T) {
		_, err := NewProduct("", "Water", 12)
		assert.Error(t, err)
		_, err = NewProduct("WATER", "Water", 0)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_FACTOR", domainErr.Code)
	})
}

func TestProduct_UnitConversion(t *testing.T) {
	p, err := NewProduct("WATER", "Water", 12)
	require.NoError(t, err)

	assert.Equal(t, int64(60), p.ToBaseQuantity(5, UnitTypeLarge))
	assert.Equal(t, int64(5), p.ToBaseQuantity(5, UnitTypeSmall))
	assert.Equal(t, int64(5), p.ToBaseQuantity(5, ""))

	assert.True(t, p.ToBaseUnitCost(dec("600"), UnitTypeLarge).Equal(dec("50")))
	assert.True(t, p.ToBaseUnitCost(dec("100"), UnitTypeLarge).Equal(dec("8.3333")))
	assert.True(t, p.ToBaseUnitCost(dec("7.5"), UnitTypeSmall).Equal(dec("7.5")))

	assert.True(t, p.DisplayQuantity(30, UnitTypeLarge).Equal(dec("2.5")))
	assert.True(t, p.DisplayQuantity(30, UnitTypeSmall).Equal(dec("30")))
}

func TestMovementKind_ValidateSign(t *testing.T) {
	tests := []struct {
		kind    MovementKind
		qty     int64
		wantErr bool
	}{
		{MovementPurchase, 5, false},
		{MovementPurchase, -5, true},
		{MovementSale, -5, false},
		{MovementSale, 5, true},
		{MovementSaleReturn, 1, false},
		{MovementPurchaseReturn, 1, true},
		{MovementAdjustmentIn, -1, true},
		{MovementAdjustmentOut, -1, false},
		{MovementTransfer, -3, false},
		{MovementTransfer, 3, false},
		{MovementTransfer, 0, true},
		{MovementKind("gift"), 1, true},
	}
	for _, tt := range tests {
		err := tt.kind.ValidateSign(tt.qty)
		if tt.wantErr {
			assert.Error(t, err, "%s %d", tt.kind, tt.qty)
		} else {
			assert.NoError(t, err, "%s %d", tt.kind, tt.qty)
		}
	}
}

func TestNewStockMovement(t *testing.T) {
	wh, product := uuid.New(), uuid.New()
	ref := shared.NewReference("document", uuid.New())

	m, err := NewStockMovement(wh, product, 60, dec("50"), MovementPurchase, ref)
	require.NoError(t, err)
	assert.True(t, m.Value().Equal(dec("3000")))
	assert.Equal(t, ref, m.Reference)

	_, err = NewStockMovement(uuid.Nil, product, 1, dec("1"), MovementPurchase, ref)
	assert.Error(t, err)
	_, err = NewStockMovement(wh, product, 1, dec("-1"), MovementPurchase, ref)
	assert.Error(t, err)

	require.NoError(t, m.Tombstone(time.Now()))
	assert.True(t, m.Tombstoned)
	assert.ErrorIs(t, m.Tombstone(time.Now()), shared.ErrInvalidState)
}

func TestWeightedAverageCost(t *testing.T) {
	mv := func(qty int64, cost string, kind MovementKind) StockMovement {
		return StockMovement{Quantity: qty, UnitCost: dec(cost), Kind: kind}
	}

	t.Run("purchase-type rows only", func(t *testing.T) {
		avg, ok := WeightedAverageCost([]StockMovement{
			mv(60, "50", MovementPurchase),
			mv(40, "60", MovementAdjustmentIn),
			mv(-20, "50", MovementSale),
			mv(10, "999", MovementSaleReturn),
			mv(5, "999", MovementTransfer),
		})
		require.True(t, ok)
		assert.True(t, avg.Equal(dec("54")), "avg %s", avg)
	})

	t.Run("tombstoned rows are ignored", func(t *testing.T) {
		voided := mv(100, "10", MovementPurchase)
		voided.Tombstoned = true
		avg, ok := WeightedAverageCost([]StockMovement{voided, mv(10, "20", MovementPurchase)})
		require.True(t, ok)
		assert.True(t, avg.Equal(dec("20")))
	})

	t.Run("no purchases keeps the cached value", func(t *testing.T) {
		_, ok := WeightedAverageCost([]StockMovement{mv(-5, "1", MovementSale)})
		assert.False(t, ok)
		_, ok = WeightedAverageCost(nil)
		assert.False(t, ok)
	})

	t.Run("rounds to four places", func(t *testing.T) {
		avg, ok := WeightedAverageCost([]StockMovement{
			mv(3, "1", MovementPurchase),
			mv(3, "2", MovementPurchase),
			mv(3, "2", MovementPurchase),
		})
		require.True(t, ok)
		assert.True(t, avg.Equal(dec("1.6667")), "avg %s", avg)
	})
}

func TestEvaluateAvailability(t *testing.T) {
	p, err := NewProduct("WATER", "Water", 12)
	require.NoError(t, err)
	wh := uuid.New()

	ok := EvaluateAvailability(p, wh, 60, 60, UnitTypeLarge, false)
	assert.True(t, ok.Available)
	assert.NoError(t, ok.Err())
	assert.True(t, ok.DisplayStock.Equal(dec("5")))

	short := EvaluateAvailability(p, wh, 10, 12, "", false)
	assert.False(t, short.Available)
	assert.Equal(t, UnitTypeSmall, short.UnitType)

	err = short.Err()
	assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	var resErr *shared.InsufficientResourceError
	require.ErrorAs(t, err, &resErr)
	assert.True(t, resErr.Available.Equal(dec("10")))
	assert.True(t, resErr.Required.Equal(dec("12")))

	assert.True(t, EvaluateAvailability(p, wh, 0, 12, UnitTypeSmall, true).Available)
}

func TestStockKey_Less(t *testing.T) {
	a := StockKey{WarehouseID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), ProductID: uuid.MustParse("00000000-0000-0000-0000-000000000009")}
	b := StockKey{WarehouseID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), ProductID: uuid.MustParse("00000000-0000-0000-0000-000000000001")}
	c := StockKey{WarehouseID: a.WarehouseID, ProductID: uuid.MustParse("00000000-0000-0000-0000-00000000000a")}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Less(c))
	assert.False(t, a.Less(a))
}
