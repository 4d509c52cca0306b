package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/leiakito/wuliu-sub000/internal/logistics/entity"
	"github.com/leiakito/wuliu-sub000/internal/logistics/repository"
	"github.com/leiakito/wuliu-sub000/internal/logistics/service"
	"github.com/leiakito/wuliu-sub000/internal/logistics/testutil"
	"github.com/leiakito/wuliu-sub000/internal/ownerstore"
)

// 与 main 相同的装配方式拉起一套接口，走真实中间件和路由
func setupAPITest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	owners := ownerstore.NewMemoryStore()
	orderRepo := repository.NewOrderRepository(db)
	settleRepo := repository.NewSettlementRepository(db)
	subRepo := repository.NewSubmissionRepository(db)
	subLogRepo := repository.NewSubmissionLogRepository(db)
	priceRepo := repository.NewHardwarePriceRepository(db)

	orderSvc := service.NewOrderService(db, orderRepo, owners)
	settlementSvc := service.NewSettlementService(db, settleRepo, orderRepo, priceRepo, owners, orderSvc, nil, service.SettlementOptions{WarnDoubleBilling: true})
	orderSvc.BindSettlements(settlementSvc)
	submissionSvc := service.NewSubmissionService(db, subRepo, subLogRepo, orderRepo, settlementSvc, owners)

	orderHandler := NewOrderHandler(orderSvc)
	settlementHandler := NewSettlementHandler(settlementSvc)
	submissionHandler := NewSubmissionHandler(submissionSvc)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api")
	api.POST("/orders", orderHandler.CreateOrder)
	api.POST("/submissions", submissionHandler.CreateSubmission)
	api.GET("/submissions/mine", submissionHandler.ListMine)
	api.GET("/settlements", settlementHandler.ListSettlements)
	api.POST("/settlements/:id/confirm", settlementHandler.ConfirmSettlement)
	return r, db
}

func TestSubmissionAPIRequiresAuth(t *testing.T) {
	r, _ := setupAPITest(t)

	w := testutil.DoRequest(r, "POST", "/api/submissions", map[string]string{"tracking_number": "SF1111111111"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestSubmissionAPIFlow(t *testing.T) {
	r, db := setupAPITest(t)
	token := testutil.GenerateTestToken("u-alice", "alice", "user")
	adminToken := testutil.DefaultTestToken()

	// 先建订单
	w := testutil.DoRequest(r, "POST", "/api/orders", map[string]interface{}{
		"tracking_number": "SF1111111111",
		"sn":              "SN001",
		"amount":          120.0,
	}, adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("order create failed: %d %s", w.Code, w.Body.String())
	}

	// 用户提报
	w = testutil.DoRequest(r, "POST", "/api/submissions", map[string]string{"tracking_number": "SF1111111111"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("submission create failed: %d %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["username"] != "alice" || data["status"] != "PENDING" {
		t.Fatalf("unexpected submission payload: %v", data)
	}

	// 重复提报被拒
	w = testutil.DoRequest(r, "POST", "/api/submissions", map[string]string{"tracking_number": "SF1111111111"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate, got %d %s", w.Code, w.Body.String())
	}

	// 提报触发的待确认结算出现在列表里
	w = testutil.DoRequest(r, "GET", "/api/settlements?status=PENDING", nil, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("settlement list failed: %d %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	items := resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 pending settlement, got %d", len(items))
	}
	settlementID := items[0].(map[string]interface{})["id"].(string)

	// 确认结算后提报自动完成
	w = testutil.DoRequest(r, "POST", "/api/settlements/"+settlementID+"/confirm", map[string]interface{}{"amount": 120.0}, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm failed: %d %s", w.Code, w.Body.String())
	}

	var submission entity.UserSubmission
	if err := db.First(&submission, "tracking_number = ?", "SF1111111111").Error; err != nil {
		t.Fatalf("submission lookup failed: %v", err)
	}
	if submission.Status != entity.SubmissionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %q", submission.Status)
	}

	// 我的提报列表
	w = testutil.DoRequest(r, "GET", "/api/submissions/mine", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("list mine failed: %d %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	items = resp["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(items))
	}
}
