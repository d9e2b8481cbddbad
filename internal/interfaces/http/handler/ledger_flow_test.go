package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfinance "github.com/erp/ledger/internal/application/finance"
	appinventory "github.com/erp/ledger/internal/application/inventory"
	apppartner "github.com/erp/ledger/internal/application/partner"
	"github.com/erp/ledger/internal/application/posting"
	appreport "github.com/erp/ledger/internal/application/report"
	appshared "github.com/erp/ledger/internal/application/shared"
	apptreasury "github.com/erp/ledger/internal/application/treasury"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/partner"
	"github.com/erp/ledger/internal/domain/trade"
	"github.com/erp/ledger/internal/domain/treasury"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/persistence/testdb"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/router"
)

type ledgerAPI struct {
	t         *testing.T
	engine    *gin.Engine
	repos     appshared.TransactionalRepositories
	warehouse uuid.UUID
	product   *inventory.Product
	till      *treasury.Treasury
	customer  *partner.Partner
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func newLedgerAPI(t *testing.T) *ledgerAPI {
	t.Helper()
	db := testdb.New(t)
	scope := persistence.NewGormTransactionScope(db)
	repos := scope.Repositories()
	ctx := context.Background()

	payments := appfinance.NewPaymentService(scope, nil)
	store := cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = store.Close() })
	payments.SetIdempotencyStore(store, time.Hour)

	engine, err := router.NewEngine(router.EngineConfig{}, router.Handlers{
		System:   handler.NewSystemHandler("erp-ledger", "test", map[string]handler.Pinger{"database": handler.PingFunc(func(ctx context.Context) error { return db.WithContext(ctx).Exec("SELECT 1").Error })}),
		Posting:  handler.NewPostingHandler(posting.NewOrchestrator(scope, appinventory.StockLedgerOptions{}, nil, nil)),
		Treasury: handler.NewTreasuryHandler(apptreasury.NewService(scope, nil)),
		Payment:  handler.NewPaymentHandler(payments),
		Stock:    handler.NewStockHandler(appinventory.NewStockService(scope, appinventory.StockLedgerOptions{}, nil)),
		Partner:  handler.NewPartnerHandler(apppartner.NewService(scope, nil)),
		Report:   handler.NewReportHandler(appreport.NewService(scope, persistence.NewGormReportRepository(db), nil)),
	})
	require.NoError(t, err)

	api := &ledgerAPI{t: t, engine: engine, repos: repos, warehouse: uuid.New()}

	api.product, err = inventory.NewProduct("WATER-500", "Mineral water 500ml", 12)
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(ctx, api.product))
	api.till, err = treasury.NewTreasury("Main till")
	require.NoError(t, err)
	require.NoError(t, repos.Treasuries().Save(ctx, api.till))
	api.customer, err = partner.NewPartner("Corner shop", partner.PartnerTypeCustomer, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, repos.Partners().Save(ctx, api.customer))
	return api
}

func (a *ledgerAPI) call(method, path string, body any, headers ...string) (int, apiResponse) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (a *ledgerAPI) document(number string, docType trade.DocumentType, method trade.PaymentMethod, total, paid string, qty int64, unit inventory.UnitType, price string) *trade.Document {
	a.t.Helper()
	doc, err := trade.NewDocument(number, docType, method, decimal.RequireFromString(total), decimal.RequireFromString(paid), time.Now())
	require.NoError(a.t, err)
	doc.WarehouseID = &a.warehouse
	doc.TreasuryID = &a.till.ID
	if method == trade.PaymentCredit {
		doc.PartnerID = &a.customer.ID
	}
	doc.AddItem(a.product.ID, qty, unit, decimal.RequireFromString(price))
	require.NoError(a.t, a.repos.Documents().Save(context.Background(), doc))
	return doc
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func TestLedgerAPI_TradingDay(t *testing.T) {
	api := newLedgerAPI(t)
	tillPath := "/treasuries/" + api.till.ID.String()

	status, resp := api.call(http.MethodPost, tillPath+"/transactions", map[string]any{
		"kind": "capital_deposit", "amount": "10000", "description": "opening capital",
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)

	purchase := api.document("PI-1", trade.DocumentPurchaseInvoice, trade.PaymentCash, "3000", "3000", 5, inventory.UnitTypeLarge, "600")
	status, resp = api.call(http.MethodPost, "/documents/"+purchase.ID.String()+"/post", nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	posted := decode[posting.Result](t, resp.Data)
	require.Len(t, posted.Movements, 1)
	assert.Equal(t, int64(60), posted.Movements[0].Quantity)

	stockPath := "/stock/" + api.warehouse.String() + "/" + api.product.ID.String()
	status, resp = api.call(http.MethodGet, stockPath, nil)
	require.Equal(t, http.StatusOK, status)
	level := decode[appinventory.StockLevelResponse](t, resp.Data)
	assert.Equal(t, int64(60), level.Quantity)
	assert.True(t, level.AverageCost.Equal(decimalOf(t, "50")))

	status, resp = api.call(http.MethodGet, stockPath+"/validation?quantity=6&unit_type=large", nil)
	require.Equal(t, http.StatusOK, status)
	check := decode[appinventory.StockValidationResponse](t, resp.Data)
	assert.False(t, check.Available)
	assert.NotEmpty(t, check.Message)

	sale := api.document("SI-1", trade.DocumentSalesInvoice, trade.PaymentCash, "10000", "10000", 20, inventory.UnitTypeSmall, "500")
	status, _ = api.call(http.MethodPost, "/documents/"+sale.ID.String()+"/post", nil)
	require.Equal(t, http.StatusOK, status)

	status, resp = api.call(http.MethodPost, "/documents/"+sale.ID.String()+"/post", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)

	status, resp = api.call(http.MethodGet, tillPath+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	balance := decode[apptreasury.BalanceResponse](t, resp.Data)
	assert.True(t, balance.Balance.Equal(decimalOf(t, "17000")), "balance %s", balance.Balance)

	day := time.Now().Format("2006-01-02")
	status, resp = api.call(http.MethodGet, "/reports/financial?from="+day+"&to="+day, nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	var fin struct {
		TotalSales      decimal.Decimal `json:"total_sales"`
		CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
		TotalCash       decimal.Decimal `json:"total_cash"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &fin))
	assert.True(t, fin.TotalSales.Equal(decimalOf(t, "10000")))
	assert.True(t, fin.CostOfGoodsSold.Equal(decimalOf(t, "1000")))
	assert.True(t, fin.TotalCash.Equal(decimalOf(t, "17000")))

	status, resp = api.call(http.MethodGet, "/reports/stock-card/"+api.product.ID.String()+"?from="+day+"&to="+day+"&warehouse_id="+api.warehouse.String(), nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	var card struct {
		ClosingStock int64 `json:"closing_stock"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &card))
	assert.Equal(t, int64(40), card.ClosingStock)
}

func TestLedgerAPI_SellingMoreThanStockIsRejected(t *testing.T) {
	api := newLedgerAPI(t)
	sale := api.document("SI-2", trade.DocumentSalesInvoice, trade.PaymentCash, "500", "500", 1, inventory.UnitTypeSmall, "500")

	status, resp := api.call(http.MethodPost, "/documents/"+sale.ID.String()+"/post", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, dto.ValidationDetail{Field: "required", Message: "1"})

	stored, err := api.repos.Documents().FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusDraft, stored.Status)
}

func TestLedgerAPI_CreditSaleInstallmentsAndPayments(t *testing.T) {
	api := newLedgerAPI(t)
	status, _ := api.call(http.MethodPost, "/treasuries/"+api.till.ID.String()+"/transactions", map[string]any{
		"kind": "capital_deposit", "amount": "1000",
	})
	require.Equal(t, http.StatusCreated, status)
	purchase := api.document("PI-2", trade.DocumentPurchaseInvoice, trade.PaymentCash, "600", "600", 1, inventory.UnitTypeLarge, "600")
	status, _ = api.call(http.MethodPost, "/documents/"+purchase.ID.String()+"/post", nil)
	require.Equal(t, http.StatusOK, status)

	sale := api.document("SI-3", trade.DocumentSalesInvoice, trade.PaymentCredit, "10000", "0", 10, inventory.UnitTypeSmall, "1000")
	docPath := "/documents/" + sale.ID.String()
	status, resp := api.call(http.MethodPost, docPath+"/post", nil)
	require.Equal(t, http.StatusOK, status, resp.Error)

	status, resp = api.call(http.MethodPost, docPath+"/installments", map[string]any{
		"months": 3, "start_date": time.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)
	schedule := decode[appfinance.ScheduleResponse](t, resp.Data)
	require.Len(t, schedule.Installments, 3)
	sum := decimal.Zero
	for _, in := range schedule.Installments {
		sum = sum.Add(in.Amount)
	}
	assert.True(t, sum.Equal(decimalOf(t, "10000")), "sum %s", sum)
	assert.True(t, schedule.Installments[0].Amount.Equal(decimalOf(t, "3333.3333")))
	assert.True(t, schedule.Installments[2].Amount.Equal(decimalOf(t, "3333.3334")))

	status, resp = api.call(http.MethodPost, docPath+"/installments", map[string]any{
		"months": 2, "start_date": time.Now().Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "SCHEDULE_EXISTS", resp.Error.Code)

	headers := []string{"Idempotency-Key", "collect-1", "X-User-ID", uuid.NewString()}
	status, resp = api.call(http.MethodPost, docPath+"/payments", map[string]any{"amount": "4000"}, headers...)
	require.Equal(t, http.StatusCreated, status, resp.Error)
	first := decode[appfinance.PaymentResponse](t, resp.Data)
	assert.True(t, first.RemainingAmount.Equal(decimalOf(t, "6000")))
	require.Len(t, first.Allocations, 2)
	assert.True(t, first.Allocations[0].Settled)
	require.NotNil(t, first.PartnerBalance)
	assert.True(t, first.PartnerBalance.Equal(decimalOf(t, "6000")))

	status, resp = api.call(http.MethodPost, docPath+"/payments", map[string]any{"amount": "4000"}, headers...)
	require.Equal(t, http.StatusOK, status, resp.Error)
	replay := decode[appfinance.PaymentResponse](t, resp.Data)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Payment.ID, replay.Payment.ID)

	status, resp = api.call(http.MethodPost, docPath+"/payments", map[string]any{"amount": "7000"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "PAYMENT_EXCEEDS_REMAINING", resp.Error.Code)

	status, resp = api.call(http.MethodGet, "/treasuries/"+api.till.ID.String()+"/balance", nil)
	require.Equal(t, http.StatusOK, status)
	balance := decode[apptreasury.BalanceResponse](t, resp.Data)
	assert.True(t, balance.Balance.Equal(decimalOf(t, "4400")), "replayed payment must not collect twice, got %s", balance.Balance)

	status, resp = api.call(http.MethodPost, "/partners/"+api.customer.ID.String()+"/balance/recompute", nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	recomputed := decode[apppartner.BalanceResponse](t, resp.Data)
	assert.True(t, recomputed.Balance.Equal(decimalOf(t, "6000")), "balance %s", recomputed.Balance)
}

func TestLedgerAPI_ProbesAndValidation(t *testing.T) {
	api := newLedgerAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	status, resp := api.call(http.MethodGet, "/reports/financial?from=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	status, resp = api.call(http.MethodPost, "/documents/"+uuid.NewString()+"/post", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)

	status, resp = api.call(http.MethodPost, "/documents/"+uuid.NewString()+"/payments", map[string]any{"amount": "1"}, "X-User-ID", "someone")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ACTOR", resp.Error.Code)
}
