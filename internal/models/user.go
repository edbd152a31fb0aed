package models

// Plan is a subscription tier of the legal-assistant product.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// User is the authenticated identity the quota gate evaluates. It is
// supplied by the user-profile collaborator; the engine never updates
// usage counters itself.
type User struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Plan  Plan   `json:"plan"`
	Usage Usage  `json:"usage"`
}

// Usage holds the current billing-period counters for a user.
type Usage struct {
	QueriesThisMonth int `json:"queriesThisMonth"`
}
