package categorize

import "github.com/pwalczyk/invoiceflow/internal/domain/entity"

// categoryKeywords drives the keyword-scoring fallback. Hits are counted
// in the seller name and line-item text; ties are broken by the category
// declaration order in entity.Categories.
var categoryKeywords = map[entity.Category][]string{
	entity.CategoryFuel: {
		"orlen", "shell", "bp ", "circle k", "paliwo", "fuel", "benzyna",
		"diesel", "tankowanie", "stacja paliw",
	},
	entity.CategoryHosting: {
		"hosting", "vps", "serwer", "server", "cloud", "aws", "ovh",
		"hetzner", "domena", "domain",
	},
	entity.CategoryOfficeSupplies: {
		"biuro", "office", "papier", "paper", "toner", "artykuly biurowe",
		"segregator",
	},
	entity.CategorySoftware: {
		"licencja", "license", "software", "subskrypcja", "subscription",
		"saas", "jetbrains", "microsoft", "adobe",
	},
	entity.CategoryMarketing: {
		"reklama", "marketing", "ads", "google ads", "kampania", "promocja",
	},
	entity.CategoryUtilities: {
		"energia", "prad", "gaz", "woda", "electricity", "tauron", "pge",
		"enea",
	},
	entity.CategoryServices: {
		"usluga", "uslugi", "service", "consulting", "doradztwo", "serwis",
		"wsparcie",
	},
	entity.CategoryGoodsPurchase: {
		"towar", "towary", "goods", "hurt", "hurtownia", "wholesale",
		"zakup towarow",
	},
	entity.CategoryTransport: {
		"transport", "kurier", "courier", "dhl", "ups", "fedex", "inpost",
		"spedycja", "przesylka", "shipping",
	},
	entity.CategoryWages: {
		"wynagrodzenie", "payroll", "salary", "umowa zlecenie",
	},
	entity.CategoryPrepaid: {
		"prenumerata", "ubezpieczenie", "insurance", "polisa", "abonament",
	},
	entity.CategoryRnDServices: {
		"badania", "rozwoj", "b+r", "research", "development", "prototyp",
		"laboratorium",
	},
}

// Amount bands for the coarse fallback guess, in cents.
const (
	bucketSmallMaxCents  = 20_000    // 200.00 and below: consumables
	bucketMediumMaxCents = 1_000_000 // 10 000.00 and below: services
)

// bucketCategory guesses a category from the gross amount alone.
func bucketCategory(grossCents int64) entity.Category {
	switch {
	case grossCents <= bucketSmallMaxCents:
		return entity.CategoryOfficeSupplies
	case grossCents <= bucketMediumMaxCents:
		return entity.CategoryServices
	default:
		return entity.CategoryGoodsPurchase
	}
}
