package models

// Constituent is one ETF holding enriched with its latest price
type Constituent struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Price  float64 `json:"price"`
}

// TopHolding represents a holding ranked by market value (weight * latest price)
type TopHolding struct {
	Name        string  `json:"name"`
	HoldingSize float64 `json:"holding_size"`
}

// ETFPrice represents the reconstructed fund price on one date
type ETFPrice struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// UploadResponse represents the analytics returned for an uploaded ETF file
type UploadResponse struct {
	Constituents []Constituent `json:"constituents"`
	TopHoldings  []TopHolding  `json:"top_holdings"`
	ETFPrices    []ETFPrice    `json:"etf_prices"`
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error       string `json:"error"`
	ErrorCode   int    `json:"error_code"`
	ErrorDetail string `json:"error_detail,omitempty"`
}
