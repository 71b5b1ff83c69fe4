package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/i18n"
	"github.com/javajoker/inkwell-backend/internal/metrics"
	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/router"
	"github.com/javajoker/inkwell-backend/internal/services"
	"github.com/javajoker/inkwell-backend/internal/testutil"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

const signingSecret = "api_test_secret"

type stubGateway struct {
	n   atomic.Int32
	err error
}

func (g *stubGateway) Name() string      { return "razorpay" }
func (g *stubGateway) PublicKey() string { return "rzp_test_api" }

func (g *stubGateway) CreateOrder(ctx context.Context, req services.OrderRequest) (*services.GatewayOrder, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &services.GatewayOrder{
		ID:       fmt.Sprintf("order_api%06d", g.n.Add(1)),
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

func (g *stubGateway) ConfirmPayment(ctx context.Context, c services.PaymentConfirmation) error {
	return services.NewRazorpayGateway(g.PublicKey(), signingSecret).ConfirmPayment(ctx, c)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type PaymentsAPITestSuite struct {
	suite.Suite
	db      *gorm.DB
	router  *gin.Engine
	gateway *stubGateway
	seller  uuid.UUID
	buyer   uuid.UUID
	post    *models.Post
}

func TestPaymentsAPITestSuite(t *testing.T) {
	suite.Run(t, new(PaymentsAPITestSuite))
}

func (suite *PaymentsAPITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("api-test-jwt-secret")
	metrics.Register()
	suite.Require().NoError(i18n.Initialize("en"))
}

func (suite *PaymentsAPITestSuite) SetupTest() {
	suite.db = testutil.NewTestDB(suite.T())
	suite.gateway = &stubGateway{}
	suite.seller = uuid.New()
	suite.buyer = uuid.New()
	suite.post = testutil.CreatePost(suite.T(), suite.db, suite.seller, 10000, true)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Payment: config.PaymentConfig{
			Provider:           config.ProviderRazorpay,
			Currency:           "INR",
			RazorpayKeyID:      "rzp_test_api",
			RazorpayKeySecret:  signingSecret,
			PlatformFeePercent: "30",
			PlatformOwnerID:    uuid.New(),
			GatewayTimeout:     2,
		},
		I18n: config.I18nConfig{DefaultLocale: "en"},
	}

	store := repository.NewStore(suite.db)
	receipts, err := services.NewReceiptGenerator(3)
	suite.Require().NoError(err)

	svc := services.NewPaymentService(services.PaymentDeps{
		Store:    store,
		Catalog:  services.NewPostCatalog(store),
		Gateway:  suite.gateway,
		Settings: services.NewSettingsService(store, decimal.NewFromInt(30)),
		Receipts: receipts,
		Config:   cfg.Payment,
	})
	suite.router = router.Initialize(suite.db, cfg, svc)
}

func (suite *PaymentsAPITestSuite) token(userID uuid.UUID) string {
	token, err := utils.GenerateJWT(userID, "user-"+userID.String()[:8], "reader", time.Hour)
	suite.Require().NoError(err)
	return token
}

func (suite *PaymentsAPITestSuite) do(method, path string, userID uuid.UUID, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(jsonData)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+suite.token(userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var resp envelope
	if w.Header().Get("Content-Type") != "" && bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (suite *PaymentsAPITestSuite) createOrder(buyer uuid.UUID) services.OrderResponse {
	w, resp := suite.do(http.MethodPost, "/v1/payments/order", buyer, gin.H{"item_id": suite.post.ID.String()})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var order services.OrderResponse
	suite.Require().NoError(json.Unmarshal(resp.Data, &order))
	return order
}

func signedBody(orderID string) gin.H {
	paymentID := "pay_" + orderID[len(orderID)-6:]
	return gin.H{
		"gateway_order_id": orderID,
		"payment_id":       paymentID,
		"signature":        utils.SignPayment(orderID, paymentID, signingSecret),
	}
}

func (suite *PaymentsAPITestSuite) TestPurchaseFlow() {
	order := suite.createOrder(suite.buyer)
	suite.Equal(int64(10000), order.Amount)
	suite.Equal("INR", order.Currency)
	suite.Equal("rzp_test_api", order.KeyID)
	suite.NotEqual(uuid.Nil, order.PurchaseID)

	w, resp := suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, signedBody(order.ID))
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.True(resp.Success)

	var verified struct {
		Receipt services.Receipt `json:"receipt"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &verified))
	suite.Equal(models.PurchaseStatusCompleted, verified.Receipt.Status)
	suite.Equal(int64(7000), verified.Receipt.CreatorShare)
	suite.Equal(int64(3000), verified.Receipt.PlatformShare)
	suite.False(verified.Receipt.Duplicate)

	// Replaying the callback is harmless.
	w, resp = suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, signedBody(order.ID))
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Require().NoError(json.Unmarshal(resp.Data, &verified))
	suite.True(verified.Receipt.Duplicate)

	w, resp = suite.do(http.MethodGet, "/v1/payments/history", suite.buyer, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("1", w.Header().Get("X-Total-Count"))
	var history []services.PurchaseSummary
	suite.Require().NoError(json.Unmarshal(resp.Data, &history))
	suite.Require().Len(history, 1)
	suite.Equal(order.PurchaseID, history[0].ID)
	suite.Require().NotNil(history[0].Item)
	suite.Equal(suite.post.Title, history[0].Item.Title)

	w, resp = suite.do(http.MethodGet, "/v1/payments/earnings", suite.seller, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var earnings struct {
		TotalEarnings      int64  `json:"total_earnings"`
		PlatformFees       int64  `json:"platform_fees"`
		TotalSales         int    `json:"total_sales"`
		PlatformFeePercent string `json:"platform_fee_percent"`
		Balance            int64  `json:"balance"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Data, &earnings))
	suite.Equal(int64(7000), earnings.TotalEarnings)
	suite.Equal(int64(3000), earnings.PlatformFees)
	suite.Equal(1, earnings.TotalSales)
	suite.Equal("30", earnings.PlatformFeePercent)
	suite.Equal(int64(7000), earnings.Balance)

	w, resp = suite.do(http.MethodPost, "/v1/payments/order", suite.buyer, gin.H{"item_id": suite.post.ID.String()})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("ALREADY_PURCHASED", resp.Error.Code)
}

func (suite *PaymentsAPITestSuite) TestRequiresAuthentication() {
	w, resp := suite.do(http.MethodGet, "/v1/payments/history", uuid.Nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("UNAUTHORIZED", resp.Error.Code)
}

func (suite *PaymentsAPITestSuite) TestTamperedSignatureClosesOrder() {
	order := suite.createOrder(suite.buyer)

	body := signedBody(order.ID)
	body["payment_id"] = "pay_forged"
	w, resp := suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, body, "Accept-Language", "hi-IN,hi;q=0.9")
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("INVALID_SIGNATURE", resp.Error.Code)
	suite.Equal(i18n.T("hi", i18n.KeyPaymentInvalidSignature), resp.Error.Message)

	w, resp = suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, signedBody(order.ID))
	suite.Equal(http.StatusConflict, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("ORDER_CLOSED", resp.Error.Code)
}

func (suite *PaymentsAPITestSuite) TestUnsignedRazorpayPaymentIsRejected() {
	order := suite.createOrder(suite.buyer)

	body := signedBody(order.ID)
	delete(body, "signature")
	w, resp := suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, body)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("INVALID_SIGNATURE", resp.Error.Code)

	var purchase models.Purchase
	suite.Require().NoError(suite.db.First(&purchase, "id = ?", order.PurchaseID).Error)
	suite.Equal(models.PurchaseStatusFailed, purchase.Status)
}

func (suite *PaymentsAPITestSuite) TestVerifyByAnotherBuyer() {
	order := suite.createOrder(suite.buyer)

	w, resp := suite.do(http.MethodPost, "/v1/payments/verify", uuid.New(), signedBody(order.ID))
	suite.Equal(http.StatusForbidden, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("ORDER_OWNERSHIP_MISMATCH", resp.Error.Code)
}

func (suite *PaymentsAPITestSuite) TestRequestValidation() {
	w, resp := suite.do(http.MethodPost, "/v1/payments/order", suite.buyer, gin.H{"item_id": "not-a-uuid"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("VALIDATION_ERROR", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, gin.H{
		"gateway_order_id": "order_x1",
		"payment_id":       "pay_x1",
		"signature":        "zz",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("VALIDATION_ERROR", resp.Error.Code)

	w, _ = suite.do(http.MethodPost, "/v1/payments/order", suite.buyer, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *PaymentsAPITestSuite) TestItemErrors() {
	w, resp := suite.do(http.MethodPost, "/v1/payments/order", suite.buyer, gin.H{"item_id": uuid.NewString()})
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("ITEM_NOT_FOUND", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, "/v1/payments/order", suite.seller, gin.H{"item_id": suite.post.ID.String()})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("OWN_ITEM", resp.Error.Code)

	w, resp = suite.do(http.MethodPost, "/v1/payments/verify", suite.buyer, signedBody("order_unknown1"))
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Require().NotNil(resp.Error)
	suite.Equal("ORDER_NOT_FOUND", resp.Error.Code)
}

func (suite *PaymentsAPITestSuite) TestGatewayUnavailable() {
	suite.gateway.err = errors.New("connection refused")

	w, resp := suite.do(http.MethodPost, "/v1/payments/order", suite.buyer, gin.H{"item_id": suite.post.ID.String()})
	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("5", w.Header().Get("Retry-After"))
	suite.Require().NotNil(resp.Error)
	suite.Equal("GATEWAY_UNAVAILABLE", resp.Error.Code)
	suite.NotContains(w.Body.String(), "connection refused")

	suite.gateway.err = nil
	order := suite.createOrder(suite.buyer)
	suite.NotEmpty(order.ID)
}

func (suite *PaymentsAPITestSuite) TestHealthAndMetrics() {
	w, _ := suite.do(http.MethodGet, "/health", uuid.Nil, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"database":"ok"`)

	w, _ = suite.do(http.MethodGet, "/metrics", uuid.Nil, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "payments_ledger_retries_total")
}
