// Package dompick resolves controls on a dynamically rendered page by
// their visible text and drives them with single-shot trusted clicks. The
// page under automation renders in English or Russian depending on the
// account, so every control is described by a priority-ordered candidate
// text set rather than a selector.
package dompick

// CandidateTextSet is a priority-ordered list of visible labels that all
// denote the same control. Earlier entries win over later ones when the
// page shows more than one.
type CandidateTextSet struct {
	// Name identifies the control in logs and errors.
	Name string
	// Texts are the accepted visible labels, highest priority first.
	Texts []string
}

// Control labels for the order form, English first, Russian second.
var (
	MarketTab = CandidateTextSet{
		Name:  "market tab",
		Texts: []string{"Market", "Маркет", "По рынку"},
	}
	LimitTab = CandidateTextSet{
		Name:  "limit tab",
		Texts: []string{"Limit", "Лимит", "Лимитный"},
	}
	OpenLong = CandidateTextSet{
		Name:  "open long button",
		Texts: []string{"Open Long", "Открыть лонг", "Buy", "Купить"},
	}
	OpenShort = CandidateTextSet{
		Name:  "open short button",
		Texts: []string{"Open Short", "Открыть шорт", "Sell", "Продать"},
	}
	ConfirmButton = CandidateTextSet{
		Name:  "confirm button",
		Texts: []string{"Confirm", "Подтвердить", "OK"},
	}
)

// PresetSet returns the candidate set for a preset size marker (25, 50,
// 75, 100). Preset markers render as slider stops labeled with the
// percentage.
func PresetSet(percent int) CandidateTextSet {
	switch percent {
	case 25:
		return CandidateTextSet{Name: "preset 25%", Texts: []string{"25%"}}
	case 50:
		return CandidateTextSet{Name: "preset 50%", Texts: []string{"50%"}}
	case 75:
		return CandidateTextSet{Name: "preset 75%", Texts: []string{"75%"}}
	case 100:
		return CandidateTextSet{Name: "preset 100%", Texts: []string{"100%"}}
	default:
		return CandidateTextSet{}
	}
}

// Input field labels (matched against placeholder, aria-label, and name).
var (
	PriceInput = CandidateTextSet{
		Name:  "limit price input",
		Texts: []string{"Price", "Цена"},
	}
	SizeInput = CandidateTextSet{
		Name:  "position size input",
		Texts: []string{"Quantity", "Amount", "Количество", "Объем"},
	}
)
