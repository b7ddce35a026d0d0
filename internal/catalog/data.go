package catalog

import "github.com/aleber123/nytt-sub001/internal/domain"

// Service IDs referenced by the recommendation rules.
const (
	ServiceApostille    = "apostille"
	ServiceNotarization = "notarization"
	ServiceChamber      = "chamber"
	ServiceUD           = "ud"
	ServiceEmbassy      = "embassy"
	ServiceTranslation  = "translation"
)

// Hague membership as of 2025. China joined in November 2023.
var countries = []domain.Country{
	{Code: "AE", Name: "Förenade Arabemiraten", NameEn: "United Arab Emirates"},
	{Code: "AR", Name: "Argentina", NameEn: "Argentina", Hague: true},
	{Code: "AT", Name: "Österrike", NameEn: "Austria", Hague: true},
	{Code: "AU", Name: "Australien", NameEn: "Australia", Hague: true},
	{Code: "BD", Name: "Bangladesh", NameEn: "Bangladesh"},
	{Code: "BE", Name: "Belgien", NameEn: "Belgium", Hague: true},
	{Code: "BR", Name: "Brasilien", NameEn: "Brazil", Hague: true},
	{Code: "CA", Name: "Kanada", NameEn: "Canada", Hague: true},
	{Code: "CH", Name: "Schweiz", NameEn: "Switzerland", Hague: true},
	{Code: "CN", Name: "Kina", NameEn: "China", Hague: true},
	{Code: "DE", Name: "Tyskland", NameEn: "Germany", Hague: true},
	{Code: "DK", Name: "Danmark", NameEn: "Denmark", Hague: true},
	{Code: "DZ", Name: "Algeriet", NameEn: "Algeria"},
	{Code: "EG", Name: "Egypten", NameEn: "Egypt"},
	{Code: "ES", Name: "Spanien", NameEn: "Spain", Hague: true},
	{Code: "ET", Name: "Etiopien", NameEn: "Ethiopia"},
	{Code: "FI", Name: "Finland", NameEn: "Finland", Hague: true},
	{Code: "FR", Name: "Frankrike", NameEn: "France", Hague: true},
	{Code: "GB", Name: "Storbritannien", NameEn: "United Kingdom", Hague: true},
	{Code: "GR", Name: "Grekland", NameEn: "Greece", Hague: true},
	{Code: "IE", Name: "Irland", NameEn: "Ireland", Hague: true},
	{Code: "IN", Name: "Indien", NameEn: "India", Hague: true},
	{Code: "IQ", Name: "Irak", NameEn: "Iraq"},
	{Code: "IR", Name: "Iran", NameEn: "Iran"},
	{Code: "IT", Name: "Italien", NameEn: "Italy", Hague: true},
	{Code: "JO", Name: "Jordanien", NameEn: "Jordan"},
	{Code: "JP", Name: "Japan", NameEn: "Japan", Hague: true},
	{Code: "KR", Name: "Sydkorea", NameEn: "South Korea", Hague: true},
	{Code: "KW", Name: "Kuwait", NameEn: "Kuwait"},
	{Code: "LB", Name: "Libanon", NameEn: "Lebanon"},
	{Code: "LY", Name: "Libyen", NameEn: "Libya"},
	{Code: "MX", Name: "Mexiko", NameEn: "Mexico", Hague: true},
	{Code: "MY", Name: "Malaysia", NameEn: "Malaysia"},
	{Code: "NL", Name: "Nederländerna", NameEn: "Netherlands", Hague: true},
	{Code: "NO", Name: "Norge", NameEn: "Norway", Hague: true},
	{Code: "PL", Name: "Polen", NameEn: "Poland", Hague: true},
	{Code: "PT", Name: "Portugal", NameEn: "Portugal", Hague: true},
	{Code: "QA", Name: "Qatar", NameEn: "Qatar"},
	{Code: "SA", Name: "Saudiarabien", NameEn: "Saudi Arabia"},
	{Code: "SE", Name: "Sverige", NameEn: "Sweden", Hague: true},
	{Code: "SY", Name: "Syrien", NameEn: "Syria"},
	{Code: "TH", Name: "Thailand", NameEn: "Thailand"},
	{Code: "TR", Name: "Turkiet", NameEn: "Turkey", Hague: true},
	// Party to the Apostille Convention; non-Hague paths are exercised with AE and TH.
	{Code: "US", Name: "USA", NameEn: "United States", Hague: true},
	{Code: "VN", Name: "Vietnam", NameEn: "Vietnam"},
	{Code: "ZA", Name: "Sydafrika", NameEn: "South Africa", Hague: true},
}

// Prices in öre including VAT, per document.
var services = []domain.Service{
	{ID: ServiceApostille, Name: "Apostille", Price: 89500},
	{ID: ServiceNotarization, Name: "Notarius Publicus", Price: 129500},
	{ID: ServiceChamber, Name: "Handelskammaren", Price: 79900},
	{ID: ServiceUD, Name: "Utrikesdepartementet", Price: 79500},
	{ID: ServiceEmbassy, Name: "Ambassadlegalisering", Price: 129500},
	{ID: ServiceTranslation, Name: "Auktoriserad översättning", Price: 145000},
}

var documentTypes = []domain.DocumentType{
	{ID: "birth-certificate", Name: "Födelsebevis", NameEn: "Birth certificate"},
	{ID: "marriage-certificate", Name: "Vigselbevis", NameEn: "Marriage certificate"},
	{ID: "diploma", Name: "Examensbevis", NameEn: "Diploma"},
	{ID: "power-of-attorney", Name: "Fullmakt", NameEn: "Power of attorney"},
	{ID: "passport-copy", Name: "Passkopia", NameEn: "Passport copy"},
	{ID: "certificate-of-incorporation", Name: "Registreringsbevis", NameEn: "Certificate of incorporation"},
	{ID: "commercial-invoice", Name: "Handelsfaktura", NameEn: "Commercial invoice"},
	{ID: "other", Name: "Annat dokument", NameEn: "Other document"},
}

var visaProducts = []domain.VisaProduct{
	{ID: "in-tourist", Country: "IN", Name: "Turistvisum (e-visum), 30 dagar", VisaType: domain.VisaTypeEVisa, Price: 149500},
	{ID: "in-business", Country: "IN", Name: "Affärsvisum, 1 år", VisaType: domain.VisaTypeSticker, Price: 295000},
	{ID: "cn-tourist", Country: "CN", Name: "Turistvisum, en inresa", VisaType: domain.VisaTypeSticker, Price: 249500},
	{ID: "cn-business", Country: "CN", Name: "Affärsvisum, flera inresor", VisaType: domain.VisaTypeSticker, Price: 349500},
	{ID: "eg-tourist", Country: "EG", Name: "Turistvisum (e-visum)", VisaType: domain.VisaTypeEVisa, Price: 99500},
	{ID: "sa-tourist", Country: "SA", Name: "Turistvisum (e-visum), 1 år", VisaType: domain.VisaTypeEVisa, Price: 199500},
	{ID: "vn-tourist", Country: "VN", Name: "Turistvisum (e-visum), 90 dagar", VisaType: domain.VisaTypeEVisa, Price: 119500},
	{ID: "dz-tourist", Country: "DZ", Name: "Turistvisum", VisaType: domain.VisaTypeSticker, Price: 279500},
}
