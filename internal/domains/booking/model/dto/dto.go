package dto

import (
	"bytes"
	"encoding/json"
	"parcel/internal/domains/booking/model"
	"parcel/shared/timezone"
	"time"
)

// BookingRequest is the body posted to the booking backend.
type BookingRequest struct {
	model.Draft
	ParcelServiceCost float64 `json:"parcelServiceCost"`
	ParcelPaymentTime string  `json:"parcelPaymentTime"`
	UserName          string  `json:"userName"`
	UserAddress       string  `json:"userAddress"`
	UserContact       string  `json:"userContact"`
	AdminBooking      bool    `json:"adminBooking,omitempty"`
}

// NewBookingRequest stamps the payment time from submittedAt, the moment the request is built.
func NewBookingRequest(draft model.Draft, quote float64, party model.Party, mode model.Mode, submittedAt time.Time) BookingRequest {
	return BookingRequest{
		Draft:             draft,
		ParcelServiceCost: quote,
		ParcelPaymentTime: timezone.ISO(submittedAt),
		UserName:          party.Name,
		UserAddress:       party.Address,
		UserContact:       party.Contact,
		AdminBooking:      mode.MarksAdminBooking(),
	}
}

// BookingResponse is what the backend answers. The identifier may arrive as a string or a number.
type BookingResponse struct {
	BookingID json.RawMessage `json:"bookingId,omitempty"`
}

// ID returns the booking identifier, or "" when the answer carries none. Only a non-empty
// string or a non-zero number counts as an identifier.
func (r BookingResponse) ID() string {
	raw := bytes.TrimSpace(r.BookingID)
	if len(raw) == 0 {
		return ""
	}

	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err != nil {
		return ""
	}

	if value, err := number.Float64(); err != nil || value == 0 {
		return ""
	}

	return number.String()
}

// UpdateDraftRequest patches the draft; nil fields are left untouched and an empty string clears an enum.
type UpdateDraftRequest struct {
	ReceiverName              *string                  `json:"receiverName"`
	ReceiverAddress           *string                  `json:"receiverAddress"`
	ReceiverPin               *string                  `json:"receiverPin"`
	ReceiverMobile            *string                  `json:"receiverMobile"`
	ParcelWeight              *float64                 `json:"parcelWeight"              validate:"omitempty,gte=0"`
	ParcelContentsDescription *string                  `json:"parcelContentsDescription"`
	ParcelDeliveryType        *model.DeliveryType      `json:"parcelDeliveryType"        validate:"omitempty,enum"`
	ParcelPackingPreference   *model.PackingPreference `json:"parcelPackingPreference"   validate:"omitempty,enum"`
	ParcelPickupTime          *string                  `json:"parcelPickupTime"`
	ParcelDropoffTime         *string                  `json:"parcelDropoffTime"`
}

// Apply writes the present fields onto draft.
func (r *UpdateDraftRequest) Apply(draft *model.Draft) {
	assign(&draft.ReceiverName, r.ReceiverName)
	assign(&draft.ReceiverAddress, r.ReceiverAddress)
	assign(&draft.ReceiverPin, r.ReceiverPin)
	assign(&draft.ReceiverMobile, r.ReceiverMobile)
	assign(&draft.ParcelWeight, r.ParcelWeight)
	assign(&draft.ParcelContentsDescription, r.ParcelContentsDescription)
	assign(&draft.ParcelDeliveryType, r.ParcelDeliveryType)
	assign(&draft.ParcelPackingPreference, r.ParcelPackingPreference)
	assign(&draft.ParcelPickupTime, r.ParcelPickupTime)
	assign(&draft.ParcelDropoffTime, r.ParcelDropoffTime)
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// FormResponse is the observable state of one form.
type FormResponse struct {
	ID                string      `json:"id"`
	Mode              string      `json:"mode"`
	Party             model.Party `json:"party"`
	Draft             model.Draft `json:"draft"`
	ParcelServiceCost float64     `json:"parcelServiceCost"`
	BookingID         string      `json:"bookingId"`
	Success           string      `json:"success"`
	Error             string      `json:"error"`
	Pending           int         `json:"pending"`
}

type QuoteResponse struct {
	Mode              string  `json:"mode"`
	Priceable         bool    `json:"priceable"`
	ParcelServiceCost float64 `json:"parcelServiceCost"`
}
