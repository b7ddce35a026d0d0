package flow

import (
	"strings"

	"github.com/aleber123/nytt-sub001/internal/domain"
)

// normalize restores the cross-field invariants after p has been merged
// into a. It is idempotent.
func normalize(a *domain.Answers, p domain.Patch, flowName string) {
	a.Services = dedupe(a.Services)
	a.DocumentTypes = dedupe(a.DocumentTypes)

	// help-me-choose and explicit services are mutually exclusive. When one
	// patch sets both, help-me-choose wins.
	switch {
	case p.HelpMeChooseServices != nil && *p.HelpMeChooseServices:
		a.Services = nil
	case p.Services != nil && len(a.Services) > 0:
		a.HelpMeChooseServices = false
	case a.HelpMeChooseServices:
		a.Services = nil
	}

	if a.ReturnService != domain.ReturnOwnDelivery {
		a.OwnReturnTrackingNumber = ""
	}

	// Pickup is only offered for originals.
	if a.DocumentSource == domain.SourceUpload {
		clearPickup(a)
	}

	// Only sticker visas send a passport back and forth.
	if flowName == domain.FlowVisa && a.VisaType != domain.VisaTypeSticker {
		clearPickup(a)
		a.ReturnService = ""
		a.PremiumDelivery = ""
		a.OwnReturnTrackingNumber = ""
		a.ReturnAddress = domain.Address{}
	}

	a.UploadedFiles = resizeSlots(a.UploadedFiles, a.DocumentSource, a.Quantity)

	// Without a pickup there is no address to copy.
	if a.ReturnAddress.SameAsPickup && !a.PickupService {
		a.ReturnAddress.SameAsPickup = false
	}
	if a.ReturnAddress.SameAsPickup {
		a.ReturnAddress.Street = a.PickupAddress.Street
		a.ReturnAddress.AddressLine2 = a.PickupAddress.AddressLine2
		a.ReturnAddress.PostalCode = a.PickupAddress.PostalCode
		a.ReturnAddress.City = a.PickupAddress.City
		a.ReturnAddress.CountryCode = a.PickupAddress.CountryCode
	}
}

func clearPickup(a *domain.Answers) {
	a.PickupService = false
	a.PickupMethod = ""
	a.PremiumPickup = ""
	a.PickupAddress = domain.Address{}
}

// resizeSlots keeps existing slots, drops extra ones and appends empty ones
// so that len == quantity for uploads. Originals carry no slots.
func resizeSlots(slots []domain.FileSlot, source string, quantity int) []domain.FileSlot {
	if source != domain.SourceUpload {
		return nil
	}
	if quantity < 0 {
		quantity = 0
	}
	if len(slots) >= quantity {
		return slots[:quantity:quantity]
	}
	out := make([]domain.FileSlot, quantity)
	copy(out, slots)
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
