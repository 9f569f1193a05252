package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pharmacy-intelligence-service/internal/models"
)

// Matching parameters. At most matchFetchLimit candidates are fetched per
// stock row and at most matchKeepLimit of them persist as matches.
const (
	matchFetchLimit = 40
	matchKeepLimit  = 5
)

// ScoredCandidate is a distributor inventory row with its ranking score and
// the human-readable breakdown persisted alongside it.
type ScoredCandidate struct {
	Inventory models.DistributorInventory
	Score     float64
	Reason    string
}

// NeedsAttention reports whether a stock row should be matched against
// distributor inventory: low on stock, or expiring within the match window.
// Unlike the alert rule this is a raw duration comparison, not a whole-days
// test, so a row can alert without matching for part of a day.
func NeedsAttention(stock models.RetailerStock, now time.Time) bool {
	if stock.Quantity <= lowStockThreshold {
		return true
	}
	return stock.Expiry != nil && stock.Expiry.Sub(now) <= nearExpiryDays*24*time.Hour
}

// RankCandidates scores every candidate for one stock row and returns them
// ordered best-first. Ties keep the original candidate order.
//
// Components: availability (can the distributor cover the shortfall), price
// (PTR relative to the cheapest/dearest candidate), location (same district
// as the retailer) and candidate shelf life. A final term grows as the
// retailer's own stock approaches expiry — it is additive, so an urgent
// replacement need lifts every candidate for that row equally.
func RankCandidates(currentQty int, stockExpiry *time.Time, retailerDistrict string, candidates []models.DistributorInventory, now time.Time) []ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	need := float64(max(1, lowStockThreshold-currentQty))

	minPrice := candidates[0].PTR
	maxPrice := candidates[0].PTR
	for _, c := range candidates[1:] {
		minPrice = math.Min(minPrice, c.PTR)
		maxPrice = math.Max(maxPrice, c.PTR)
	}
	priceSpread := math.Max(0.01, maxPrice-minPrice)

	urgency := 0.0
	if stockExpiry != nil {
		fiveDayBlocks := math.Ceil(float64(stockExpiry.Sub(now)) / float64(5*24*time.Hour))
		urgency = math.Max(0, 10-fiveDayBlocks)
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		availabilityScore := math.Min(float64(candidate.Stock)/need, 1) * 30
		priceScore := (maxPrice - candidate.PTR) / priceSpread * 30

		locationScore := 10.0
		if candidate.Distributor != nil && candidate.Distributor.District == retailerDistrict {
			locationScore = 20.0
		}

		expiryScore := 5.0
		switch daysToExpiry := ceilDays(candidate.Expiry.Sub(now)); {
		case daysToExpiry > 180:
			expiryScore = 20.0
		case daysToExpiry > 90:
			expiryScore = 12.0
		}

		total := availabilityScore + priceScore + locationScore + expiryScore + urgency
		scored = append(scored, ScoredCandidate{
			Inventory: candidate,
			Score:     math.Round(total*100) / 100,
			Reason: fmt.Sprintf("availability=%.1f,price=%.1f,location=%.1f,expiry=%.1f",
				availabilityScore, priceScore, locationScore, expiryScore),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
