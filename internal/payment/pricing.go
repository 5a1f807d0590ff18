package payment

import (
	"fmt"

	errors "github.com/ijbmsm/charzing-payments/internal"
)

// Diagnostic service types offered by the scheduling product.
const (
	ServiceBatteryDiagnosisBasic   = "BATTERY_DIAGNOSIS_BASIC"
	ServiceBatteryDiagnosisPremium = "BATTERY_DIAGNOSIS_PREMIUM"
	ServiceVisitInspection         = "VISIT_INSPECTION"
)

// StaticPriceCatalog resolves the trusted expected amount for a service type.
// The client-declared amount on a confirm is compared against this catalog
// (or the stored reservation), never trusted on its own.
type StaticPriceCatalog struct {
	prices map[string]int64
}

func NewStaticPriceCatalog() *StaticPriceCatalog {
	return &StaticPriceCatalog{
		prices: map[string]int64{
			ServiceBatteryDiagnosisBasic:   50000,
			ServiceBatteryDiagnosisPremium: 90000,
			ServiceVisitInspection:         30000,
		},
	}
}

func (c *StaticPriceCatalog) ExpectedAmount(serviceType string) (int64, error) {
	price, ok := c.prices[serviceType]
	if !ok {
		return 0, errors.NewValidationError(
			fmt.Sprintf("unknown service type: %s", serviceType),
			errors.ErrCodeMissingPriceReference,
		)
	}
	return price, nil
}
