package flow

import (
	"fmt"

	"github.com/aleber123/nytt-sub001/internal/domain"
)

// StepID names a wizard step.
type StepID string

const (
	StepCountry          StepID = "country"
	StepDocumentType     StepID = "document_type"
	StepServices         StepID = "services"
	StepQuantity         StepID = "quantity"
	StepDocumentSource   StepID = "document_source"
	StepShippingOrPickup StepID = "shipping_or_pickup"
	StepPickupAddress    StepID = "pickup_address"
	StepReturnService    StepID = "return_service"
	StepReturnAddress    StepID = "return_address"
	StepCustomerInfo     StepID = "customer_info"
	StepReview           StepID = "review"
	StepNationality      StepID = "nationality"
	StepVisaProduct      StepID = "visa_product"
	StepTravelDates      StepID = "travel_dates"
)

// Step is one row of a flow table. Applies decides whether the step is shown
// for the current answers; Check returns the field errors that keep the step
// from being completed, keyed by JSON path.
type Step struct {
	ID      StepID
	Applies func(a *domain.Answers) bool
	Check   func(a *domain.Answers) map[string]string
}

// Valid reports whether the step has no field errors.
func (s Step) Valid(a *domain.Answers) bool {
	return len(s.Check(a)) == 0
}

func always(*domain.Answers) bool { return true }

func needsPickup(a *domain.Answers) bool { return a.PickupService }

func needsReturnAddress(a *domain.Answers) bool { return domain.IsCarrier(a.ReturnService) }

func shipsOriginals(a *domain.Answers) bool { return a.DocumentSource != domain.SourceUpload }

func isStickerVisa(a *domain.Answers) bool { return a.VisaType == domain.VisaTypeSticker }

// E-visas are delivered by email, so the passport logistics steps only
// apply to sticker visas.
func stickerNeedsPickup(a *domain.Answers) bool { return isStickerVisa(a) && needsPickup(a) }

func stickerNeedsReturnAddress(a *domain.Answers) bool {
	return isStickerVisa(a) && needsReturnAddress(a)
}

var legalizationSteps = []Step{
	{ID: StepCountry, Applies: always, Check: checkCountry},
	{ID: StepDocumentType, Applies: always, Check: checkDocumentType},
	{ID: StepServices, Applies: always, Check: checkServices},
	{ID: StepQuantity, Applies: always, Check: checkQuantity},
	{ID: StepDocumentSource, Applies: always, Check: checkDocumentSource},
	{ID: StepShippingOrPickup, Applies: shipsOriginals, Check: checkShippingOrPickup},
	{ID: StepPickupAddress, Applies: needsPickup, Check: checkPickupAddress},
	{ID: StepReturnService, Applies: always, Check: checkReturnService},
	{ID: StepReturnAddress, Applies: needsReturnAddress, Check: checkReturnAddress},
	{ID: StepCustomerInfo, Applies: always, Check: checkCustomerInfo},
	{ID: StepReview, Applies: always, Check: checkReview},
}

var visaSteps = []Step{
	{ID: StepCountry, Applies: always, Check: checkCountry},
	{ID: StepNationality, Applies: always, Check: checkNationality},
	{ID: StepVisaProduct, Applies: always, Check: checkVisaProduct},
	{ID: StepTravelDates, Applies: always, Check: checkTravelDates},
	{ID: StepQuantity, Applies: always, Check: checkQuantity},
	{ID: StepShippingOrPickup, Applies: isStickerVisa, Check: checkShippingOrPickup},
	{ID: StepPickupAddress, Applies: stickerNeedsPickup, Check: checkPickupAddress},
	{ID: StepReturnService, Applies: isStickerVisa, Check: checkReturnService},
	{ID: StepReturnAddress, Applies: stickerNeedsReturnAddress, Check: checkReturnAddress},
	{ID: StepCustomerInfo, Applies: always, Check: checkCustomerInfo},
	{ID: StepReview, Applies: always, Check: checkTerms},
}

// Steps returns the step table for a flow.
func Steps(flowName string) ([]Step, error) {
	switch flowName {
	case domain.FlowLegalization:
		return legalizationSteps, nil
	case domain.FlowVisa:
		return visaSteps, nil
	default:
		return nil, fmt.Errorf("unknown flow %q", flowName)
	}
}
