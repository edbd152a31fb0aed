package engine

import (
	"fmt"

	"github.com/legalis-ai/legalis-go/internal/models"
)

// Unlimited marks a plan with no monthly query cap.
const Unlimited = -1

// QuotaTable maps subscription plans to their monthly query limits.
// Plans absent from the table are rejected with ErrUnknownPlan rather
// than silently granted a fallback limit.
type QuotaTable map[models.Plan]int

// DefaultQuotaTable returns the product's published tier limits.
func DefaultQuotaTable() QuotaTable {
	return QuotaTable{
		models.PlanBasic:      100,
		models.PlanPro:        500,
		models.PlanEnterprise: Unlimited,
	}
}

// CanSend reports whether the user's subscription usage permits another
// assistant query this billing period. Pure predicate: it never updates
// usage counters; those belong to the user-profile collaborator.
func (t QuotaTable) CanSend(user *models.User) (bool, error) {
	if user == nil {
		return false, ErrNoUser
	}
	limit, ok := t[user.Plan]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownPlan, user.Plan)
	}
	if limit == Unlimited {
		return true, nil
	}
	return user.Usage.QueriesThisMonth < limit, nil
}

// CanSendMessage evaluates the quota gate for the engine's current user.
func (e *Engine) CanSendMessage() (bool, error) {
	return e.quota.CanSend(e.user())
}
