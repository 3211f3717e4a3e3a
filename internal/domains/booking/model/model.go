package model

const (
	EntityName = "booking form"
)

type DeliveryType string

const (
	DeliveryStandard DeliveryType = "Standard"
	DeliveryExpress  DeliveryType = "Express"
	DeliverySameDay  DeliveryType = "SameDay"
)

func (d DeliveryType) IsValid() bool {
	switch d {
	case DeliveryStandard, DeliveryExpress, DeliverySameDay:
		return true
	}

	return false
}

type PackingPreference string

const (
	PackingBasic   PackingPreference = "Basic"
	PackingPremium PackingPreference = "Premium"
)

func (p PackingPreference) IsValid() bool {
	switch p {
	case PackingBasic, PackingPremium:
		return true
	}

	return false
}

// Mode is the booking context a form runs in. The zero value is not a mode.
type Mode uint8

const (
	ModeSelfService Mode = iota + 1
	ModeAdmin
)

// ChargesAdminFee reports whether the admin fee is part of the subtotal.
func (m Mode) ChargesAdminFee() bool {
	return m == ModeAdmin
}

// RedirectsToPayment reports whether a successful booking sends the customer to the payment screen.
func (m Mode) RedirectsToPayment() bool {
	return m == ModeSelfService
}

// MarksAdminBooking reports whether the backend payload carries adminBooking=true.
func (m Mode) MarksAdminBooking() bool {
	return m == ModeAdmin
}

func (m Mode) String() string {
	switch m {
	case ModeSelfService:
		return "self-service"
	case ModeAdmin:
		return "admin"
	}

	return "unknown"
}

// Party is whoever pays for and receives correspondence about a booking.
type Party struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// Draft is the in-progress booking. The enum fields are empty while unset.
type Draft struct {
	ReceiverName              string            `json:"receiverName"              validate:"required"`
	ReceiverAddress           string            `json:"receiverAddress"           validate:"required"`
	ReceiverPin               string            `json:"receiverPin"               validate:"required"`
	ReceiverMobile            string            `json:"receiverMobile"            validate:"required"`
	ParcelWeight              float64           `json:"parcelWeight"              validate:"gt=0"`
	ParcelContentsDescription string            `json:"parcelContentsDescription" validate:"required"`
	ParcelDeliveryType        DeliveryType      `json:"parcelDeliveryType"        validate:"required,enum"`
	ParcelPackingPreference   PackingPreference `json:"parcelPackingPreference"   validate:"required,enum"`
	ParcelPickupTime          string            `json:"parcelPickupTime"          validate:"required"`
	ParcelDropoffTime         string            `json:"parcelDropoffTime"         validate:"required"`
}

// Priceable reports whether both enum fields are set.
func (d Draft) Priceable() bool {
	return d.ParcelDeliveryType != "" && d.ParcelPackingPreference != ""
}

// RateTable holds the process-wide charges. Build it once and treat it as read-only.
type RateTable struct {
	BaseRate            float64
	WeightChargePerGram float64
	DeliveryCharges     map[DeliveryType]float64
	PackingCharges      map[PackingPreference]float64
	TaxRate             float64
	AdminFee            float64
}
