package services

import (
	"fmt"
	"math"
	"time"

	"pharmacy-intelligence-service/internal/models"
)

// Alert thresholds. A stock row qualifies for LOW_STOCK at or below
// lowStockThreshold units, and for NEAR_EXPIRY within nearExpiryDays of its
// expiry date.
const (
	lowStockThreshold     = 20
	lowStockHighThreshold = 5
	nearExpiryDays        = 45
	nearExpiryHighDays    = 15
)

// BuildAlerts evaluates the alert rules against every stock row of a
// retailer and returns the complete OPEN alert set as of now. Each row is
// evaluated independently and may yield zero, one or both alert types.
func BuildAlerts(stocks []models.RetailerStock, now time.Time) []models.StockAlert {
	var alerts []models.StockAlert
	for _, stock := range stocks {
		if stock.Quantity <= lowStockThreshold {
			severity := models.SeverityMedium
			if stock.Quantity <= lowStockHighThreshold {
				severity = models.SeverityHigh
			}
			threshold := lowStockThreshold
			alerts = append(alerts, models.StockAlert{
				RetailerID:     stock.RetailerID,
				StockID:        stock.ID,
				Type:           models.AlertLowStock,
				Severity:       severity,
				ThresholdValue: &threshold,
				Message:        fmt.Sprintf("%s is low (%d left)", stock.ProductName, stock.Quantity),
				Status:         models.AlertOpen,
			})
		}

		if stock.Expiry != nil {
			daysLeft := ceilDays(stock.Expiry.Sub(now))
			// Already-expired rows (negative daysLeft) still qualify;
			// only the message clamps to zero.
			if daysLeft <= nearExpiryDays {
				severity := models.SeverityMedium
				if daysLeft <= nearExpiryHighDays {
					severity = models.SeverityHigh
				}
				threshold := nearExpiryDays
				batch := stock.BatchNumber
				if batch == "" {
					batch = "-"
				}
				alerts = append(alerts, models.StockAlert{
					RetailerID:     stock.RetailerID,
					StockID:        stock.ID,
					Type:           models.AlertNearExpiry,
					Severity:       severity,
					ThresholdValue: &threshold,
					Message: fmt.Sprintf("%s batch %s expires in %d day(s)",
						stock.ProductName, batch, max(daysLeft, 0)),
					Status: models.AlertOpen,
				})
			}
		}
	}
	return alerts
}

// ceilDays converts a duration to whole days, rounding up
func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(24*time.Hour)))
}
