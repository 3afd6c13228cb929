package domain

import "errors"

var (
	ErrNotFound          = errors.New("plate not found")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrInvalidPromoCode  = errors.New("invalid promo code")
	ErrValidation        = errors.New("validation failed")
)
