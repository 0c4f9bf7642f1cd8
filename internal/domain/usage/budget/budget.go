package budget

// Budget is a snapshot of the engine token budget for one period.
type Budget struct {
	tokensLimit int64
	tokensUsed  int64
	resetsAt    int64 // unix millis, converted to ISO 8601 at transport layer
}

// New creates a Budget snapshot. A zero limit means unlimited.
func New(limit, used, resetsAt int64) Budget {
	if limit < 0 {
		limit = 0
	}
	if used < 0 {
		used = 0
	}
	return Budget{tokensLimit: limit, tokensUsed: used, resetsAt: resetsAt}
}

// TokensLimit returns the token cap (0 = unlimited).
func (b Budget) TokensLimit() int64 { return b.tokensLimit }

// TokensUsed returns tokens consumed in the period.
func (b Budget) TokensUsed() int64 { return b.tokensUsed }

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.tokensLimit == 0 }

// TokensRemaining returns tokens left, or -1 when unlimited.
func (b Budget) TokensRemaining() int64 {
	if b.Unlimited() {
		return -1
	}
	if b.tokensUsed >= b.tokensLimit {
		return 0
	}
	return b.tokensLimit - b.tokensUsed
}

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool {
	return !b.Unlimited() && b.tokensUsed >= b.tokensLimit
}

// ResetsAt returns the reset timestamp (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
