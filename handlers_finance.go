package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kantong/models"
	"kantong/pkg/accounts"
	"kantong/pkg/cards"
	"kantong/pkg/gold"
)

// --- accounts ---

func createAccountHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	// Note: no balance field is accepted here; balances always start at 0.
	var req struct {
		Name            string             `json:"name" binding:"required"`
		Type            models.AccountType `json:"type" binding:"required"`
		Currency        string             `json:"currency"`
		ParentAccountID *uint              `json:"parent_account_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acc, err := accountSvc.Create(user.ID, accounts.CreateRequest{
		Name:            req.Name,
		Type:            req.Type,
		Currency:        req.Currency,
		ParentAccountID: req.ParentAccountID,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func listAccountsHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := accountSvc.List(user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func getAccountHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	acc, err := accountSvc.Get(user.ID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func updateAccountHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Name            string `json:"name"`
		Currency        string `json:"currency"`
		ParentAccountID *uint  `json:"parent_account_id"`
		DetachParent    bool   `json:"detach_parent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acc, err := accountSvc.Update(user.ID, id, accounts.UpdateRequest{
		Name:            req.Name,
		Currency:        req.Currency,
		ParentAccountID: req.ParentAccountID,
		DetachParent:    req.DetachParent,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func deleteAccountHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := accountSvc.Delete(user.ID, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

func effectiveBalanceHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	balance, err := accountSvc.EffectiveBalance(user.ID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "effective_balance": balance})
}

// --- budgets ---

func createBudgetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Category    string `json:"category" binding:"required"`
		Amount      int64  `json:"amount"`
		BudgetMonth int    `json:"budget_month"`
		BudgetYear  int    `json:"budget_year"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := budgetSvc.Create(user.ID, req.Category, req.Amount, req.BudgetMonth, req.BudgetYear)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func listBudgetsHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var month, year *int
	if ms, ys := c.Query("month"), c.Query("year"); ms != "" && ys != "" {
		m, err1 := strconv.Atoi(ms)
		y, err2 := strconv.Atoi(ys)
		if err1 != nil || err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month and year must be integers"})
			return
		}
		month, year = &m, &y
	}
	list, err := budgetSvc.List(user.ID, month, year)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func getBudgetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	b, err := budgetSvc.Get(user.ID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func deleteBudgetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := budgetSvc.Delete(user.ID, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "budget deleted"})
}

func copyBudgetsHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		FromMonth int `json:"from_month"`
		FromYear  int `json:"from_year"`
		ToMonth   int `json:"to_month"`
		ToYear    int `json:"to_year"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	copied, err := budgetSvc.Copy(user.ID, req.FromMonth, req.FromYear, req.ToMonth, req.ToYear)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "budgets copied", "copied": copied})
}

// --- gold ---

func createGoldAssetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		Name                 string  `json:"name" binding:"required"`
		GoldType             string  `json:"gold_type" binding:"required"`
		WeightGram           float64 `json:"weight_gram"`
		PurchasePricePerGram int64   `json:"purchase_price_per_gram"`
		PurchaseDate         string  `json:"purchase_date" binding:"required"`
		StorageLocation      string  `json:"storage_location"`
		Notes                string  `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	purchaseDate, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid purchase date format (use YYYY-MM-DD)"})
		return
	}
	asset, err := goldSvc.CreateAsset(user.ID, gold.CreateAssetRequest{
		Name:                 req.Name,
		GoldType:             models.GoldType(req.GoldType),
		WeightGram:           req.WeightGram,
		PurchasePricePerGram: req.PurchasePricePerGram,
		PurchaseDate:         purchaseDate,
		StorageLocation:      req.StorageLocation,
		Notes:                req.Notes,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

func listGoldAssetsHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	assets, err := goldSvc.ListAssets(user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, assets)
}

func getGoldAssetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	asset, err := goldSvc.GetAsset(user.ID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

func deleteGoldAssetHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := goldSvc.DeleteAsset(user.ID, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "gold asset deleted"})
}

func goldSummaryHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	sum, err := goldSvc.GetSummary(user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func currentGoldPriceHandler(c *gin.Context) {
	price, err := priceFeed.Current()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, price)
}

func goldPriceHistoryHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	history, err := priceFeed.History(limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// recordGoldPriceHandler appends a price observation. Restricted to the
// administrator role; regular ingestion goes through process/pricewatch.
func recordGoldPriceHandler(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "administrator" {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
		return
	}
	var req struct {
		PricePerGram int64  `json:"price_per_gram"`
		ObservedAt   string `json:"observed_at"`
		Source       string `json:"source"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var observedAt time.Time
	if req.ObservedAt != "" {
		t, err := time.Parse(time.RFC3339, req.ObservedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid observed_at (use RFC3339)"})
			return
		}
		observedAt = t
	}
	source := req.Source
	if source == "" {
		source = "admin"
	}
	obs, err := priceFeed.Record(req.PricePerGram, observedAt, source)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, obs)
}

// --- credit cards ---

func createCreditCardHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req struct {
		CardName       string `json:"card_name" binding:"required"`
		LastFourDigits string `json:"last_four_digits" binding:"required"`
		CreditLimit    int64  `json:"credit_limit"`
		CurrentBalance int64  `json:"current_balance"`
		BillingDate    int    `json:"billing_date"`
		PaymentDueDate int    `json:"payment_due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	card, err := cardSvc.Create(user.ID, cards.CreateRequest{
		CardName:       req.CardName,
		LastFourDigits: req.LastFourDigits,
		CreditLimit:    req.CreditLimit,
		CurrentBalance: req.CurrentBalance,
		BillingDate:    req.BillingDate,
		PaymentDueDate: req.PaymentDueDate,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func listCreditCardsHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	list, err := cardSvc.List(user.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func getCreditCardHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	card, err := cardSvc.Get(user.ID, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func deleteCreditCardHandler(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := cardSvc.Delete(user.ID, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credit card deleted"})
}
