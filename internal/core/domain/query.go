package domain

import "fmt"

// PageSize is shared by every paged query path.
const PageSize = 20

type SortKey string

const (
	SortRegistrationAscending  SortKey = "RegistrationAscending"
	SortRegistrationDescending SortKey = "RegistrationDescending"
	SortSalePriceAscending     SortKey = "SalePriceAscending"
	SortSalePriceDescending    SortKey = "SalePriceDescending"
)

// ParseSortKey maps an empty key to the default registration ordering.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortRegistrationAscending, nil
	case SortRegistrationAscending, SortRegistrationDescending, SortSalePriceAscending, SortSalePriceDescending:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", ErrValidation, s)
}

type QueryOptions struct {
	PageNumber int
	OrderBy    SortKey
}

type Page struct {
	Plates      []PricedPlate `json:"plates"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	HasNext     bool          `json:"hasNext"`
	HasPrevious bool          `json:"hasPrevious"`
}
