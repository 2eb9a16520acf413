package event

import "errors"

// ErrInvalidBudget is returned by ProcessEvents when the budget is negative.
var ErrInvalidBudget = errors.New("invalid processing budget")
