package domain

// BillingSettings holds the numeric engine parameters resolved once per
// operation from the platform_settings table. It is always passed
// explicitly; never cached across requests.
type BillingSettings struct {
	AppointmentCreditCost int
	DoctorEarningRate     float64
	CreditToCurrencyRate  float64
	AdminEarningPercent   float64
}

// PayoutAmounts is the currency breakdown of a payout request.
type PayoutAmounts struct {
	Amount      float64
	PlatformFee float64
	NetAmount   float64
}

// ComputePayout converts a credit balance into currency amounts using the
// current billing settings.
func (b BillingSettings) ComputePayout(credits int) PayoutAmounts {
	gross := float64(credits) * b.CreditToCurrencyRate
	net := float64(credits) * b.DoctorEarningRate * b.CreditToCurrencyRate
	return PayoutAmounts{
		Amount:      gross,
		PlatformFee: gross - net,
		NetAmount:   net,
	}
}
