package processor

import "walletscope/models"

// DefaultDustThreshold is the USD value below which holdings are hidden.
const DefaultDustThreshold = 1.00

// DustFilter drops holdings worth less than Threshold USD. A holding worth
// exactly Threshold is kept.
type DustFilter struct {
	Threshold float64
}

// Keep reports whether h is worth at least Threshold USD.
func (f DustFilter) Keep(h models.NormalizedHolding) bool {
	return h.USDValue >= f.Threshold
}

// Native returns h when it passes the filter and nil otherwise.
func (f DustFilter) Native(h models.NormalizedHolding) *models.NormalizedHolding {
	if !f.Keep(h) {
		return nil
	}
	return &h
}
