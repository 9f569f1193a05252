package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pharmacy-intelligence-service/internal/models"
	"pharmacy-intelligence-service/internal/repository"
)

// Listing caps. Matches are already capped at five per stock row when
// persisted; the retailer-wide view shows the best thirty overall.
const (
	matchListLimit         = 30
	matchListPerStockLimit = 5
	opportunityListLimit   = 60
)

// StockHandler handles the read side: stock mirror, alerts, matches and
// distributor opportunity views
type StockHandler struct {
	stockRepo repository.StockRepositoryInterface
	alertRepo repository.AlertRepositoryInterface
	matchRepo repository.MatchRepositoryInterface
}

// NewStockHandler creates a new stock handler
func NewStockHandler(stockRepo repository.StockRepositoryInterface, alertRepo repository.AlertRepositoryInterface, matchRepo repository.MatchRepositoryInterface) *StockHandler {
	return &StockHandler{
		stockRepo: stockRepo,
		alertRepo: alertRepo,
		matchRepo: matchRepo,
	}
}

// ListStocks returns the retailer's stock mirror, most at-risk rows first
func (h *StockHandler) ListStocks(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}

	stocks, err := h.stockRepo.ListByRetailer(c.Request.Context(), retailerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stocks})
}

// ListAlerts returns the retailer's open alerts
func (h *StockHandler) ListAlerts(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}

	alerts, err := h.alertRepo.ListOpenByRetailer(c.Request.Context(), retailerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// ListMatches returns the retailer's replenishment matches, best score first
func (h *StockHandler) ListMatches(c *gin.Context) {
	retailerID, ok := parseUUIDParam(c, "retailerId")
	if !ok {
		return
	}

	limit := matchListLimit
	var stockID *uuid.UUID
	if raw := c.Query("stockId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stockId"})
			return
		}
		stockID = &id
		limit = matchListPerStockLimit
	}

	matches, err := h.matchRepo.ListByRetailer(c.Request.Context(), retailerID, stockID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": matches})
}

// ListOpportunities returns a distributor-facing view of the matches touching
// its inventory: which pharmacies need what, and what the distributor can
// offer against that demand
func (h *StockHandler) ListOpportunities(c *gin.Context) {
	distributorID, ok := parseUUIDParam(c, "distributorId")
	if !ok {
		return
	}

	matches, err := h.matchRepo.ListByDistributor(c.Request.Context(), distributorID, opportunityListLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	opportunities := make([]gin.H, 0, len(matches))
	for _, match := range matches {
		if match.Stock == nil || match.DistributorInventory == nil {
			continue
		}
		opportunities = append(opportunities, gin.H{
			"matchId":  match.ID,
			"score":    match.Score,
			"reason":   match.Reason,
			"product":  productView(match.Stock, match.DistributorInventory),
			"pharmacy": pharmacyView(match.Stock.Retailer, match.Stock.RetailerID),
			"demand": gin.H{
				"currentQty":   match.Stock.Quantity,
				"batchNumber":  match.Stock.BatchNumber,
				"expiry":       match.Stock.Expiry,
				"daysToExpiry": daysToExpiry(match.Stock.Expiry, now),
			},
			"yourOffer": gin.H{
				"ptr":            match.DistributorInventory.PTR,
				"availableStock": match.DistributorInventory.Stock,
				"batchNumber":    match.DistributorInventory.BatchNumber,
				"expiry":         match.DistributorInventory.Expiry,
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": opportunities})
}

func productView(stock *models.RetailerStock, inventory *models.DistributorInventory) gin.H {
	view := gin.H{
		"name":        stock.ProductName,
		"genericName": stock.GenericName,
	}
	if inventory.Product != nil {
		view["name"] = inventory.Product.Name
		view["genericName"] = inventory.Product.GenericName
	}
	return view
}

func pharmacyView(retailer *models.Retailer, retailerID uuid.UUID) gin.H {
	if retailer == nil {
		return gin.H{"id": retailerID}
	}
	return gin.H{
		"id":       retailer.ID,
		"name":     retailer.ShopName,
		"district": retailer.District,
		"phone":    retailer.Phone,
		"email":    retailer.Email,
	}
}

// daysToExpiry is ceil-days until expiry, floored at zero; nil when the
// stock row carries no expiry.
func daysToExpiry(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	days := int(math.Ceil(float64(expiry.Sub(now)) / float64(24*time.Hour)))
	if days < 0 {
		days = 0
	}
	return &days
}
