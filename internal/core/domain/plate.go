package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PlateStatus string

const (
	PlateStatusAvailable PlateStatus = "available"
	PlateStatusReserved  PlateStatus = "reserved"
	PlateStatusSold      PlateStatus = "sold"
)

type Plate struct {
	ID            string
	Registration  string
	Letters       string
	Numbers       int
	PurchasePrice decimal.Decimal
	Status        PlateStatus
	Version       int // optimistic locking
	Seq           int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PricedPlate is the only shape a plate leaves the catalog in. The sale
// price is always derived, and lifecycle flags are not exposed.
type PricedPlate struct {
	ID            string          `json:"id"`
	Registration  string          `json:"registration"`
	Letters       string          `json:"letters,omitempty"`
	Numbers       int             `json:"numbers"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SalePrice     decimal.Decimal `json:"salePrice"`
}

// NewPlate is the intake request for a plate entering the catalog.
type NewPlate struct {
	Registration  string          `json:"registration" validate:"required,alphanum,max=7"`
	Letters       string          `json:"letters" validate:"omitempty,alpha,max=3"`
	Numbers       int             `json:"numbers" validate:"min=0,max=999"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
}

// Reserve, Release and Sell mutate Status only when the transition is legal.
// Nothing leaves PlateStatusSold.
func (p *Plate) Reserve() error {
	switch p.Status {
	case PlateStatusAvailable:
		p.Status = PlateStatusReserved
		return nil
	case PlateStatusReserved:
		return fmt.Errorf("%w: plate %s is already reserved", ErrInvalidTransition, p.ID)
	default:
		return fmt.Errorf("%w: plate %s is %s", ErrInvalidTransition, p.ID, p.Status)
	}
}

func (p *Plate) Release() error {
	if p.Status != PlateStatusReserved {
		return fmt.Errorf("%w: plate %s is %s, not reserved", ErrInvalidTransition, p.ID, p.Status)
	}
	p.Status = PlateStatusAvailable
	return nil
}

// Sell requires an available plate; a reserved plate must be released first.
func (p *Plate) Sell() error {
	if p.Status != PlateStatusAvailable {
		return fmt.Errorf("%w: plate %s is %s", ErrInvalidTransition, p.ID, p.Status)
	}
	p.Status = PlateStatusSold
	return nil
}
