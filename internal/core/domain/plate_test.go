package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlateTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    PlateStatus
		apply   func(p *Plate) error
		want    PlateStatus
		wantErr bool
	}{
		{"reserve available", PlateStatusAvailable, (*Plate).Reserve, PlateStatusReserved, false},
		{"reserve reserved", PlateStatusReserved, (*Plate).Reserve, PlateStatusReserved, true},
		{"reserve sold", PlateStatusSold, (*Plate).Reserve, PlateStatusSold, true},
		{"sell available", PlateStatusAvailable, (*Plate).Sell, PlateStatusSold, false},
		{"sell reserved", PlateStatusReserved, (*Plate).Sell, PlateStatusReserved, true},
		{"sell sold", PlateStatusSold, (*Plate).Sell, PlateStatusSold, true},
		{"release reserved", PlateStatusReserved, (*Plate).Release, PlateStatusAvailable, false},
		{"release available", PlateStatusAvailable, (*Plate).Release, PlateStatusAvailable, true},
		{"release sold", PlateStatusSold, (*Plate).Release, PlateStatusSold, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &Plate{ID: "p-1", Status: c.from}
			err := c.apply(p)
			if c.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got: %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if p.Status != c.want {
				t.Errorf("expected status %s, got %s", c.want, p.Status)
			}
		})
	}
}

func TestSaleProfitMargin(t *testing.T) {
	sale := Sale{PurchasePrice: decimal.NewFromInt(100), SalePrice: decimal.NewFromInt(120)}
	if !sale.ProfitMargin().Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected 20, got %s", sale.ProfitMargin())
	}

	loss := Sale{PurchasePrice: decimal.NewFromInt(100), SalePrice: decimal.NewFromInt(90)}
	if !loss.ProfitMargin().IsZero() {
		t.Errorf("expected 0 for a loss, got %s", loss.ProfitMargin())
	}
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("")
	if err != nil || key != SortRegistrationAscending {
		t.Errorf("expected default RegistrationAscending, got %s (%v)", key, err)
	}

	key, err = ParseSortKey("SalePriceDescending")
	if err != nil || key != SortSalePriceDescending {
		t.Errorf("expected SalePriceDescending, got %s (%v)", key, err)
	}

	_, err = ParseSortKey("PriceDesc")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got: %v", err)
	}
}
