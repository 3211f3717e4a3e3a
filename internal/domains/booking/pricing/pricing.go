package pricing

import (
	"fmt"
	"math"
	"parcel/config"
	"parcel/internal/domains/booking/model"
)

// NotPriceable is quoted for drafts without a delivery type or packing preference.
const NotPriceable = 0.0

type Engine struct {
	rates model.RateTable
}

// NewRateTable reads the PRICING_* settings.
func NewRateTable(cfg *config.Config) model.RateTable {
	p := cfg.Pricing

	return model.RateTable{
		BaseRate:            p.BaseRate,
		WeightChargePerGram: p.WeightChargePerGram,
		DeliveryCharges: map[model.DeliveryType]float64{
			model.DeliveryStandard: p.Delivery.Standard,
			model.DeliveryExpress:  p.Delivery.Express,
			model.DeliverySameDay:  p.Delivery.SameDay,
		},
		PackingCharges: map[model.PackingPreference]float64{
			model.PackingBasic:   p.Packing.Basic,
			model.PackingPremium: p.Packing.Premium,
		},
		TaxRate:  p.TaxRate,
		AdminFee: p.AdminFee,
	}
}

func New(rates model.RateTable) *Engine {
	return &Engine{rates: rates}
}

// Quote prices draft for mode. The admin fee joins the subtotal before tax.
// An enum value missing from the rate table panics: the enum sets are closed.
func (e *Engine) Quote(draft model.Draft, mode model.Mode) float64 {
	if !draft.Priceable() {
		return NotPriceable
	}

	deliveryCharge, ok := e.rates.DeliveryCharges[draft.ParcelDeliveryType]
	if !ok {
		panic(fmt.Sprintf("pricing: no delivery charge for %q", draft.ParcelDeliveryType))
	}

	packingCharge, ok := e.rates.PackingCharges[draft.ParcelPackingPreference]
	if !ok {
		panic(fmt.Sprintf("pricing: no packing charge for %q", draft.ParcelPackingPreference))
	}

	weightCharge := draft.ParcelWeight * e.rates.WeightChargePerGram

	subtotal := e.rates.BaseRate + weightCharge + deliveryCharge + packingCharge
	if mode.ChargesAdminFee() {
		subtotal += e.rates.AdminFee
	}

	return Round2(subtotal * (1 + e.rates.TaxRate))
}

// Round2 rounds half away from zero at the second decimal.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}
