package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/middlewares"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/models/reports"
	"github.com/arthosutra/accubooks_backend/tallyai"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/arthosutra/accubooks_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

const defaultPageSize = 20

// ---------------------------------------------------------------------------
// request plumbing

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, tallyai.ErrAssistantDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		}
		return false
	}
	return true
}

func scopedBusinessId(c *gin.Context) string {
	businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
	return businessId
}

func pathId(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func queryInt(c *gin.Context, name string) *int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &value
}

func queryBool(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func queryString(c *gin.Context, name string) *string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func queryDate(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &value
}

func pageArgs(c *gin.Context) (int, *string) {
	limit := defaultPageSize
	if v := queryInt(c, "limit"); v != nil && *v > 0 {
		limit = *v
	}
	return limit, queryString(c, "after")
}

// ---------------------------------------------------------------------------
// auth

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func registerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusCreated, user)
	}
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input loginRequest
		if !bindJSON(c, &input) {
			return
		}
		info, err := models.Login(c.Request.Context(), input.Username, input.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := models.Logout(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input changePasswordRequest
		if !bindJSON(c, &input) {
			return
		}
		if _, err := models.ChangePassword(c.Request.Context(), input.OldPassword, input.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "password changed; all sessions revoked"})
	}
}

// ---------------------------------------------------------------------------
// businesses

func listBusinessesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businesses, err := models.ListBusinessesForUser(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, businesses)
	}
}

func createBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBusiness
		if !bindJSON(c, &input) {
			return
		}
		business, err := models.CreateBusiness(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, business)
	}
}

func getBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Param("id")
		if err := models.AuthorizeBusinessAccess(c.Request.Context(), businessId); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "business access denied"})
			return
		}
		business, err := models.GetBusinessById(c.Request.Context(), businessId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

func updateBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := c.Param("id")
		if err := models.AuthorizeBusinessAccess(c.Request.Context(), businessId); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "business access denied"})
			return
		}
		var input models.NewBusiness
		if !bindJSON(c, &input) {
			return
		}
		business, err := models.UpdateBusiness(c.Request.Context(), businessId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, business)
	}
}

// ---------------------------------------------------------------------------
// debtors / creditors

func listDebtorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginateDebtor(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryString(c, "name"), queryString(c, "phone"), queryString(c, "email"), queryBool(c, "is_active"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getDebtorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		debtor, err := models.GetDebtor(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, debtor)
	}
}

func createDebtorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewDebtor
		if !bindJSON(c, &input) {
			return
		}
		debtor, err := models.CreateDebtor(c.Request.Context(), scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, debtor)
	}
}

func updateDebtorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewDebtor
		if !bindJSON(c, &input) {
			return
		}
		debtor, err := models.UpdateDebtor(c.Request.Context(), scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, debtor)
	}
}

func deleteDebtorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		debtor, err := models.DeleteDebtor(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, debtor)
	}
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleDebtorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input toggleActiveRequest
		if !bindJSON(c, &input) {
			return
		}
		debtor, err := models.ToggleActiveDebtor(c.Request.Context(), scopedBusinessId(c), id, *input.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, debtor)
	}
}

func listCreditorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginateCreditor(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryString(c, "name"), queryString(c, "phone"), queryString(c, "email"), queryBool(c, "is_active"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		creditor, err := models.GetCreditor(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditor)
	}
}

func createCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCreditor
		if !bindJSON(c, &input) {
			return
		}
		creditor, err := models.CreateCreditor(c.Request.Context(), scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, creditor)
	}
}

func updateCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewCreditor
		if !bindJSON(c, &input) {
			return
		}
		creditor, err := models.UpdateCreditor(c.Request.Context(), scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditor)
	}
}

func deleteCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		creditor, err := models.DeleteCreditor(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditor)
	}
}

func toggleCreditorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input toggleActiveRequest
		if !bindJSON(c, &input) {
			return
		}
		creditor, err := models.ToggleActiveCreditor(c.Request.Context(), scopedBusinessId(c), id, *input.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, creditor)
	}
}

// ---------------------------------------------------------------------------
// invoices / bills

func queryDocumentStatus(c *gin.Context) *models.DocumentStatus {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil
	}
	status := models.DocumentStatus(strings.ToUpper(raw))
	return &status
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginateInvoice(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "debtor_id"), queryDocumentStatus(c), queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func createInvoiceHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := workflow.CreateInvoice(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, invoice)
	}
}

func updateInvoiceHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewInvoice
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := workflow.UpdateInvoice(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func deleteInvoiceHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		invoice, err := workflow.DeleteInvoice(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

type documentStatusRequest struct {
	Status models.DocumentStatus `json:"status" binding:"required"`
}

func markInvoiceStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input documentStatusRequest
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := workflow.MarkInvoiceStatus(c.Request.Context(), scopedBusinessId(c), id, input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func listBillsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginateBill(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "creditor_id"), queryDocumentStatus(c), queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getBillHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		bill, err := models.GetBill(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func createBillHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBill
		if !bindJSON(c, &input) {
			return
		}
		bill, err := workflow.CreateBill(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, bill)
	}
}

func updateBillHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewBill
		if !bindJSON(c, &input) {
			return
		}
		bill, err := workflow.UpdateBill(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func deleteBillHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		bill, err := workflow.DeleteBill(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func markBillStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input documentStatusRequest
		if !bindJSON(c, &input) {
			return
		}
		bill, err := workflow.MarkBillStatus(c.Request.Context(), scopedBusinessId(c), id, input.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, bill)
	}
}

func refreshDocumentStatusesHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		changed, err := workflow.RefreshDocumentStatuses(c.Request.Context(), logger, scopedBusinessId(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": changed})
	}
}

// ---------------------------------------------------------------------------
// purchases

func listPurchasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginatePurchase(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "creditor_id"), queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getPurchaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		purchase, err := models.GetPurchase(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, purchase)
	}
}

func createPurchaseHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPurchase
		if !bindJSON(c, &input) {
			return
		}
		purchase, err := workflow.CreatePurchase(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, purchase)
	}
}

func updatePurchaseHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewPurchase
		if !bindJSON(c, &input) {
			return
		}
		purchase, err := workflow.UpdatePurchase(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, purchase)
	}
}

func deletePurchaseHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		purchase, err := workflow.DeletePurchase(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, purchase)
	}
}

// ---------------------------------------------------------------------------
// payments / receipts

func queryPaymentMethod(c *gin.Context) *models.PaymentMethod {
	raw := strings.TrimSpace(c.Query("method"))
	if raw == "" {
		return nil
	}
	method := models.PaymentMethod(strings.ToUpper(raw))
	return &method
}

func listPaymentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginatePayment(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "creditor_id"), queryPaymentMethod(c), queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getPaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		payment, err := models.GetPayment(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func createPaymentHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, err := workflow.CreatePayment(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, payment)
	}
}

func updatePaymentHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		payment, err := workflow.UpdatePayment(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func deletePaymentHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		payment, err := workflow.DeletePayment(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, payment)
	}
}

func listReceiptsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginatePaymentReceipt(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "debtor_id"), queryPaymentMethod(c), queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		receipt, err := models.GetPaymentReceipt(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

func createReceiptHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPaymentReceipt
		if !bindJSON(c, &input) {
			return
		}
		receipt, err := workflow.CreatePaymentReceipt(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, receipt)
	}
}

func updateReceiptHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewPaymentReceipt
		if !bindJSON(c, &input) {
			return
		}
		receipt, err := workflow.UpdatePaymentReceipt(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

func deleteReceiptHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		receipt, err := workflow.DeletePaymentReceipt(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, receipt)
	}
}

// ---------------------------------------------------------------------------
// bank accounts / transactions

func listBankAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.GetBankAccounts(c.Request.Context(), scopedBusinessId(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, accounts)
	}
}

func getBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		account, err := models.GetBankAccount(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func createBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBankAccount
		if !bindJSON(c, &input) {
			return
		}
		account, err := models.CreateBankAccount(c.Request.Context(), scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, account)
	}
}

func updateBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewBankAccount
		if !bindJSON(c, &input) {
			return
		}
		account, err := models.UpdateBankAccount(c.Request.Context(), scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func deleteBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		account, err := models.DeleteBankAccount(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func toggleBankAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input toggleActiveRequest
		if !bindJSON(c, &input) {
			return
		}
		account, err := models.ToggleActiveBankAccount(c.Request.Context(), scopedBusinessId(c), id, *input.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, account)
	}
}

func queryTransactionType(c *gin.Context) *models.BankTransactionType {
	raw := strings.TrimSpace(c.Query("type"))
	if raw == "" {
		return nil
	}
	transactionType := models.BankTransactionType(strings.ToLower(raw))
	return &transactionType
}

func listBankTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, after := pageArgs(c)
		connection, err := models.PaginateBankTransaction(c.Request.Context(), scopedBusinessId(c), limit, after,
			queryInt(c, "bank_account_id"), queryTransactionType(c), queryBool(c, "reconciled"),
			queryDate(c, "from"), queryDate(c, "to"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, connection)
	}
}

func getBankTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		transaction, err := models.GetBankTransaction(c.Request.Context(), scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transaction)
	}
}

func createBankTransactionHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBankTransaction
		if !bindJSON(c, &input) {
			return
		}
		transaction, err := workflow.CreateBankTransaction(c.Request.Context(), logger, scopedBusinessId(c), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, transaction)
	}
}

func updateBankTransactionHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewBankTransaction
		if !bindJSON(c, &input) {
			return
		}
		transaction, err := workflow.UpdateBankTransaction(c.Request.Context(), logger, scopedBusinessId(c), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transaction)
	}
}

func deleteBankTransactionHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathId(c)
		if err != nil {
			respondError(c, err)
			return
		}
		transaction, err := workflow.DeleteBankTransaction(c.Request.Context(), logger, scopedBusinessId(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transaction)
	}
}

// ---------------------------------------------------------------------------
// reconciliation

type reconciliationRequest struct {
	BankAccountId    int             `json:"bank_account_id" binding:"required"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	SelectedIds      []int           `json:"selected_ids"`
}

func reconciliationDiffHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input reconciliationRequest
		if !bindJSON(c, &input) {
			return
		}
		result, err := workflow.ComputeReconciliation(c.Request.Context(), scopedBusinessId(c),
			input.BankAccountId, input.StatementBalance, input.SelectedIds)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func reconciliationSaveHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input reconciliationRequest
		if !bindJSON(c, &input) {
			return
		}
		if err := workflow.SaveReconciliation(c.Request.Context(), logger, scopedBusinessId(c),
			input.BankAccountId, input.SelectedIds); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "reconciliation saved"})
	}
}

// ---------------------------------------------------------------------------
// reports

func dashboardReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := reports.GetDashboardReport(c.Request.Context(), scopedBusinessId(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func exportTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		from := queryDate(c, "from")
		to := queryDate(c, "to")
		format := strings.ToLower(strings.TrimSpace(c.Query("format")))

		var err error
		switch format {
		case "", "csv":
			err = reports.ExportTransactionsCSV(c.Writer, c.Request.Context(), scopedBusinessId(c), from, to)
		case "xlsx":
			err = reports.ExportTransactionsXLSX(c.Writer, c.Request.Context(), scopedBusinessId(c), from, to)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
			return
		}
		if err != nil {
			respondError(c, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TallyAI

type tallyChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func tallyChatHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input tallyChatRequest
		if !bindJSON(c, &input) {
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		reply, err := tallyai.Chat(c.Request.Context(), logger, scopedBusinessId(c), userId, input.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reply)
	}
}

func tallyHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := queryInt(c, "limit"); v != nil && *v > 0 {
			limit = *v
		}
		history, err := models.GetTallyHistory(c.Request.Context(), scopedBusinessId(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

func tallyClearHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := models.ClearTallyHistory(c.Request.Context(), scopedBusinessId(c)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
	}
}

// ---------------------------------------------------------------------------
// ops

func auditBalancesHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		repair := false
		if v := queryBool(c, "repair"); v != nil {
			repair = *v
		}
		report, err := workflow.AuditBalances(c.Request.Context(), logger, scopedBusinessId(c), repair)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func auditAllBusinessesHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context())
		if !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		repair := false
		if v := queryBool(c, "repair"); v != nil {
			repair = *v
		}
		reportList, err := workflow.AuditAllBusinesses(c.Request.Context(), logger, repair)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reportList)
	}
}

// ---------------------------------------------------------------------------
// router / main

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func buildRouter(logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		// Always allow the startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate app endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Business-Id", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.SessionMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	auth := r.Group("/auth")
	{
		auth.POST("/register", registerHandler())
		auth.POST("/login", loginHandler())
		auth.POST("/logout", middlewares.RequireSession(), logoutHandler())
		auth.POST("/change-password", middlewares.RequireSession(), changePasswordHandler())
	}

	businesses := r.Group("/businesses", middlewares.RequireSession())
	{
		businesses.GET("", listBusinessesHandler())
		businesses.POST("", createBusinessHandler())
		businesses.GET("/:id", getBusinessHandler())
		businesses.PUT("/:id", updateBusinessHandler())
	}

	// Everything below acts on a single business, named explicitly by the
	// X-Business-Id header.
	api := r.Group("/api", middlewares.RequireSession(), middlewares.BusinessScopeMiddleware())
	{
		api.GET("/debtors", listDebtorsHandler())
		api.POST("/debtors", createDebtorHandler())
		api.GET("/debtors/:id", getDebtorHandler())
		api.PUT("/debtors/:id", updateDebtorHandler())
		api.DELETE("/debtors/:id", deleteDebtorHandler())
		api.PUT("/debtors/:id/active", toggleDebtorHandler())

		api.GET("/creditors", listCreditorsHandler())
		api.POST("/creditors", createCreditorHandler())
		api.GET("/creditors/:id", getCreditorHandler())
		api.PUT("/creditors/:id", updateCreditorHandler())
		api.DELETE("/creditors/:id", deleteCreditorHandler())
		api.PUT("/creditors/:id/active", toggleCreditorHandler())

		api.GET("/invoices", listInvoicesHandler())
		api.POST("/invoices", createInvoiceHandler(logger))
		api.GET("/invoices/:id", getInvoiceHandler())
		api.PUT("/invoices/:id", updateInvoiceHandler(logger))
		api.DELETE("/invoices/:id", deleteInvoiceHandler(logger))
		api.PUT("/invoices/:id/status", markInvoiceStatusHandler())

		api.GET("/bills", listBillsHandler())
		api.POST("/bills", createBillHandler(logger))
		api.GET("/bills/:id", getBillHandler())
		api.PUT("/bills/:id", updateBillHandler(logger))
		api.DELETE("/bills/:id", deleteBillHandler(logger))
		api.PUT("/bills/:id/status", markBillStatusHandler())

		api.POST("/documents/refresh-statuses", refreshDocumentStatusesHandler(logger))

		api.GET("/purchases", listPurchasesHandler())
		api.POST("/purchases", createPurchaseHandler(logger))
		api.GET("/purchases/:id", getPurchaseHandler())
		api.PUT("/purchases/:id", updatePurchaseHandler(logger))
		api.DELETE("/purchases/:id", deletePurchaseHandler(logger))

		api.GET("/payments", listPaymentsHandler())
		api.POST("/payments", createPaymentHandler(logger))
		api.GET("/payments/:id", getPaymentHandler())
		api.PUT("/payments/:id", updatePaymentHandler(logger))
		api.DELETE("/payments/:id", deletePaymentHandler(logger))

		api.GET("/receipts", listReceiptsHandler())
		api.POST("/receipts", createReceiptHandler(logger))
		api.GET("/receipts/:id", getReceiptHandler())
		api.PUT("/receipts/:id", updateReceiptHandler(logger))
		api.DELETE("/receipts/:id", deleteReceiptHandler(logger))

		api.GET("/bank-accounts", listBankAccountsHandler())
		api.POST("/bank-accounts", createBankAccountHandler())
		api.GET("/bank-accounts/:id", getBankAccountHandler())
		api.PUT("/bank-accounts/:id", updateBankAccountHandler())
		api.DELETE("/bank-accounts/:id", deleteBankAccountHandler())
		api.PUT("/bank-accounts/:id/active", toggleBankAccountHandler())

		api.GET("/transactions", listBankTransactionsHandler())
		api.POST("/transactions", createBankTransactionHandler(logger))
		api.GET("/transactions/:id", getBankTransactionHandler())
		api.PUT("/transactions/:id", updateBankTransactionHandler(logger))
		api.DELETE("/transactions/:id", deleteBankTransactionHandler(logger))

		api.POST("/reconciliation/diff", reconciliationDiffHandler())
		api.POST("/reconciliation/save", reconciliationSaveHandler(logger))

		api.GET("/reports/dashboard", dashboardReportHandler())
		api.GET("/reports/transactions/export", exportTransactionsHandler())

		api.POST("/tallyai/chat", tallyChatHandler(logger))
		api.GET("/tallyai/history", tallyHistoryHandler())
		api.DELETE("/tallyai/history", tallyClearHandler())

		api.POST("/audit/balances", auditBalancesHandler(logger))
	}

	r.POST("/internal/audit/balances", middlewares.RequireSession(), auditAllBusinessesHandler(logger))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return r
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server before dependencies connect; the readiness gate
	// answers 503 until DB and Redis are up.
	r := buildRouter(logger)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	config.InitOpenAI()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations
	// as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	if err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error; err != nil {
		logger.WithFields(logrus.Fields{"field": "database"}).Warn("failed to set isolation level: " + err.Error())
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
