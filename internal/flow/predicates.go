package flow

import (
	"fmt"
	"time"

	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/pkg/validator"
)

const dateLayout = "2006-01-02"

type pickupAddressRules struct {
	Name       string `json:"name" validate:"required"`
	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	City       string `json:"city" validate:"required"`
}

type pickupStep struct {
	Address pickupAddressRules `json:"pickup_address"`
}

type returnAddressRules struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Street      string `json:"street" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	City        string `json:"city" validate:"required"`
	CountryCode string `json:"country_code" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
}

type returnStep struct {
	Address returnAddressRules `json:"return_address"`
}

type customerInfoRules struct {
	CustomerType string `json:"-"`
	FirstName    string `json:"first_name" validate:"required_if=CustomerType private"`
	LastName     string `json:"last_name" validate:"required_if=CustomerType private"`
	CompanyName  string `json:"company_name" validate:"required_if=CustomerType company"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
}

type billingRules struct {
	Street      string `json:"street" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	City        string `json:"city" validate:"required"`
	CountryCode string `json:"country_code" validate:"required"`
}

type customerStep struct {
	CustomerType string            `json:"customer_type" validate:"required,oneof=private company"`
	Info         customerInfoRules `json:"customer_info"`
	Billing      billingRules      `json:"billing_info"`
}

func required(errs map[string]string, field, value string) {
	if value == "" {
		errs[field] = "is required"
	}
}

func checkCountry(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	required(errs, "country", a.Country)
	return errs
}

func checkDocumentType(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	required(errs, "document_type", a.DocumentType)
	return errs
}

func checkServices(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	if len(a.Services) == 0 && !a.HelpMeChooseServices {
		errs["services"] = "select at least one service or ask us to choose"
	}
	return errs
}

func checkQuantity(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	if a.Quantity < 1 || a.Quantity > domain.MaxQuantity {
		errs["quantity"] = fmt.Sprintf("must be between 1 and %d", domain.MaxQuantity)
	}
	return errs
}

func checkDocumentSource(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	if a.DocumentSource != domain.SourceOriginal && a.DocumentSource != domain.SourceUpload {
		errs["document_source"] = "is required"
	}
	return errs
}

func checkShippingOrPickup(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	if a.PickupService {
		required(errs, "pickup_method", a.PickupMethod)
	}
	return errs
}

func checkPickupAddress(a *domain.Answers) map[string]string {
	if !a.PickupService {
		return map[string]string{}
	}
	p := a.PickupAddress
	return validator.FieldErrors(pickupStep{Address: pickupAddressRules{
		Name:       p.Name,
		Street:     p.Street,
		PostalCode: p.PostalCode,
		City:       p.City,
	}})
}

func checkReturnService(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	required(errs, "return_service", a.ReturnService)
	if a.ReturnService == domain.ReturnOwnDelivery {
		required(errs, "own_return_tracking_number", a.OwnReturnTrackingNumber)
	}
	return errs
}

func checkReturnAddress(a *domain.Answers) map[string]string {
	r := a.ReturnAddress
	return validator.FieldErrors(returnStep{Address: returnAddressRules{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Street:      r.Street,
		PostalCode:  r.PostalCode,
		City:        r.City,
		CountryCode: r.CountryCode,
		Email:       r.Email,
		Phone:       r.Phone,
	}})
}

func checkCustomerInfo(a *domain.Answers) map[string]string {
	c, b := a.CustomerInfo, a.BillingInfo
	return validator.FieldErrors(customerStep{
		CustomerType: a.CustomerType,
		Info: customerInfoRules{
			CustomerType: a.CustomerType,
			FirstName:    c.FirstName,
			LastName:     c.LastName,
			CompanyName:  c.CompanyName,
			Email:        c.Email,
			Phone:        c.Phone,
		},
		Billing: billingRules{
			Street:      b.Street,
			PostalCode:  b.PostalCode,
			City:        b.City,
			CountryCode: b.CountryCode,
		},
	})
}

func checkTerms(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	if !a.TermsAccepted {
		errs["terms_accepted"] = "must be accepted"
	}
	return errs
}

// checkReview additionally requires every upload slot to hold a file.
func checkReview(a *domain.Answers) map[string]string {
	errs := checkTerms(a)
	if a.DocumentSource == domain.SourceUpload {
		for i, f := range a.UploadedFiles {
			if !f.Filled() {
				errs[fmt.Sprintf("uploaded_files.%d", i)] = "is required"
			}
		}
	}
	return errs
}

func checkNationality(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	required(errs, "nationality", a.Nationality)
	return errs
}

func checkVisaProduct(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	required(errs, "visa_product_id", a.VisaProductID)
	if a.VisaType != domain.VisaTypeEVisa && a.VisaType != domain.VisaTypeSticker {
		errs["visa_type"] = "must be one of: e-visa sticker"
	}
	return errs
}

func checkTravelDates(a *domain.Answers) map[string]string {
	errs := map[string]string{}
	departure, depErr := time.Parse(dateLayout, a.DepartureDate)
	if depErr != nil {
		errs["departure_date"] = "must be a date formatted as " + dateLayout
	}
	ret, retErr := time.Parse(dateLayout, a.ReturnDate)
	if retErr != nil {
		errs["return_date"] = "must be a date formatted as " + dateLayout
	}
	if depErr == nil && retErr == nil && ret.Before(departure) {
		errs["return_date"] = "must not be before departure_date"
	}
	return errs
}
