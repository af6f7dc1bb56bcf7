package domain

// Subscription plan names as stored on the user record.
const (
	PlanStarter  = "starter"
	PlanStandard = "standard"
	PlanPro      = "pro"
)

// PlanLimits maps a plan to its monthly video quota.
var PlanLimits = map[string]int{
	PlanStarter:  15,
	PlanStandard: 25,
	PlanPro:      50,
}

// Paystack event/status values that release credits.
const (
	EventChargeSuccess = "charge.success"
	ChargeStatusOK     = "success"
)
