package domain

import (
	"fmt"
	"strings"

	"github.com/aleber123/nytt-sub001/pkg/validator"
)

// Patch is a step-scoped update to Answers. Nil fields are left untouched;
// nested records replace the stored record wholesale. Uploaded files and
// pricing are not patchable.
type Patch struct {
	Country              *string   `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	DocumentType         *string   `json:"document_type,omitempty" validate:"omitempty,max=64"`
	DocumentTypes        *[]string `json:"document_types,omitempty" validate:"omitempty,max=10,dive,max=64"`
	Services             *[]string `json:"services,omitempty" validate:"omitempty,max=20,dive,required,max=64"`
	HelpMeChooseServices *bool     `json:"help_me_choose_services,omitempty"`
	Quantity             *int      `json:"quantity,omitempty" validate:"omitempty,gte=0,lte=10"`
	Expedited            *bool     `json:"expedited,omitempty"`
	ScannedCopies        *bool     `json:"scanned_copies,omitempty"`

	DocumentSource          *string  `json:"document_source,omitempty" validate:"omitempty,oneof=original upload"`
	PickupService           *bool    `json:"pickup_service,omitempty"`
	PickupMethod            *string  `json:"pickup_method,omitempty" validate:"omitempty,max=64"`
	PremiumPickup           *string  `json:"premium_pickup,omitempty" validate:"omitempty,max=64"`
	PickupAddress           *Address `json:"pickup_address,omitempty"`
	ReturnService           *string  `json:"return_service,omitempty" validate:"omitempty,oneof=dhl-sweden dhl-europe dhl-worldwide stockholm-city own-delivery office-pickup"`
	PremiumDelivery         *string  `json:"premium_delivery,omitempty" validate:"omitempty,max=64"`
	OwnReturnTrackingNumber *string  `json:"own_return_tracking_number,omitempty" validate:"omitempty,max=128"`
	ReturnAddress           *Address `json:"return_address,omitempty"`

	CustomerType     *string       `json:"customer_type,omitempty" validate:"omitempty,oneof=private company"`
	CustomerInfo     *CustomerInfo `json:"customer_info,omitempty"`
	BillingInfo      *Address      `json:"billing_info,omitempty"`
	InvoiceReference *string       `json:"invoice_reference,omitempty" validate:"omitempty,max=128"`
	AdditionalNotes  *string       `json:"additional_notes,omitempty" validate:"omitempty,max=2000"`
	TermsAccepted    *bool         `json:"terms_accepted,omitempty"`

	Nationality   *string `json:"nationality,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	VisaProductID *string `json:"visa_product_id,omitempty" validate:"omitempty,max=64"`
	VisaType      *string `json:"visa_type,omitempty" validate:"omitempty,oneof=e-visa sticker"`
	DepartureDate *string `json:"departure_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ReturnDate    *string `json:"return_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Canonical returns p with country codes trimmed and upper-cased, the form
// they are validated and stored in.
func (p Patch) Canonical() Patch {
	p.Country = upper(p.Country)
	p.Nationality = upper(p.Nationality)
	return p
}

// Validate rejects patches carrying values outside a field's domain, such
// as an unknown enum or a quantity above MaxQuantity.
func (p Patch) Validate() error {
	if err := validator.Validate(p); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	return nil
}

// Apply merges p into a shallowly. Normalisation is the caller's job.
func (p Patch) Apply(a *Answers) {
	setString(&a.Country, p.Country)
	setString(&a.DocumentType, p.DocumentType)
	if p.DocumentTypes != nil {
		a.DocumentTypes = append([]string(nil), (*p.DocumentTypes)...)
	}
	if p.Services != nil {
		a.Services = append([]string(nil), (*p.Services)...)
	}
	setBool(&a.HelpMeChooseServices, p.HelpMeChooseServices)
	if p.Quantity != nil {
		a.Quantity = *p.Quantity
	}
	setBool(&a.Expedited, p.Expedited)
	setBool(&a.ScannedCopies, p.ScannedCopies)

	setString(&a.DocumentSource, p.DocumentSource)
	setBool(&a.PickupService, p.PickupService)
	setString(&a.PickupMethod, p.PickupMethod)
	setString(&a.PremiumPickup, p.PremiumPickup)
	if p.PickupAddress != nil {
		a.PickupAddress = *p.PickupAddress
	}
	setString(&a.ReturnService, p.ReturnService)
	setString(&a.PremiumDelivery, p.PremiumDelivery)
	setString(&a.OwnReturnTrackingNumber, p.OwnReturnTrackingNumber)
	if p.ReturnAddress != nil {
		a.ReturnAddress = *p.ReturnAddress
	}

	setString(&a.CustomerType, p.CustomerType)
	if p.CustomerInfo != nil {
		a.CustomerInfo = *p.CustomerInfo
	}
	if p.BillingInfo != nil {
		a.BillingInfo = *p.BillingInfo
	}
	setString(&a.InvoiceReference, p.InvoiceReference)
	setString(&a.AdditionalNotes, p.AdditionalNotes)
	setBool(&a.TermsAccepted, p.TermsAccepted)

	setString(&a.Nationality, p.Nationality)
	setString(&a.VisaProductID, p.VisaProductID)
	setString(&a.VisaType, p.VisaType)
	setString(&a.DepartureDate, p.DepartureDate)
	setString(&a.ReturnDate, p.ReturnDate)
}

// TouchesPricing reports whether p changes any input of the price quote.
func (p Patch) TouchesPricing() bool {
	return p.Country != nil || p.DocumentType != nil || p.Services != nil ||
		p.HelpMeChooseServices != nil || p.Quantity != nil || p.Expedited != nil ||
		p.ScannedCopies != nil || p.PickupService != nil || p.PremiumPickup != nil ||
		p.ReturnService != nil || p.PremiumDelivery != nil || p.VisaProductID != nil ||
		p.DocumentSource != nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*s))
	return &v
}
