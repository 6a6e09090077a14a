package model

import "time"

// Usage records the token accounting and derived cost of one successful
// conversion. Base and total cost are expressed in integer cents to avoid
// floating-point drift in billing.
type Usage struct {
	Id         string
	DocumentId string
	Operation  string

	InputTokens  int
	OutputTokens int

	BaseCostCents  int
	MarginRatePct  int
	TotalCostCents int

	CreatedAt time.Time
}
