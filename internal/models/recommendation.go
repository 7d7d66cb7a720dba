package models

import "fmt"

// CartRequest is the body of a cart recommendation request.
type CartRequest struct {
	ProductIDs []string `json:"productIds"`
	Limit      int      `json:"limit,omitempty"`
}

// Validate checks that the cart is present. Limit normalization is left to the engine,
// which clamps non-positive limits to its configured default.
func (r *CartRequest) Validate() error {
	if r.ProductIDs == nil {
		return fmt.Errorf("productIds is required")
	}
	return nil
}

// Recommendation is a single ranked recommendation.
type Recommendation struct {
	ProductID string          `json:"productId"`
	Score     float64         `json:"score"`
	Reason    string          `json:"reason"`
	Product   *ProductSummary `json:"product"`
}

// CloneRecommendations deep-copies recs, including each product summary.
func CloneRecommendations(recs []*Recommendation) []*Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]*Recommendation, len(recs))
	for i, r := range recs {
		if r == nil {
			continue
		}
		c := *r
		c.Product = r.Product.Clone()
		out[i] = &c
	}
	return out
}

// RecommendationData is the payload of a cart recommendation response.
type RecommendationData struct {
	Recommendations []*Recommendation `json:"recommendations"`
	Total           int               `json:"total"`
	Generation      string            `json:"generation,omitempty"`
	QueryTime       int64             `json:"query_time_ms"`
}

// RecommendationResponse is the response for a cart recommendation request.
type RecommendationResponse struct {
	Success bool                `json:"success"`
	Data    *RecommendationData `json:"data"`
}
