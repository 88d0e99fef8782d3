package gate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type BudgetLevel string

const (
	BudgetNone   BudgetLevel = ""
	BudgetLow    BudgetLevel = "low"
	BudgetMid    BudgetLevel = "mid"
	BudgetHigh   BudgetLevel = "high"
	BudgetCustom BudgetLevel = "custom"
)

// BudgetSignal is the price preference found in a piece of text. Amount is set
// for a plain price ("$20"), Max for a ceiling ("under 30"). Both are only
// meaningful for BudgetCustom.
type BudgetSignal struct {
	Level    BudgetLevel `json:"level,omitempty"`
	Amount   *int        `json:"amount,omitempty"`
	Max      *int        `json:"max,omitempty"`
	Currency string      `json:"currency,omitempty"`
}

func (b BudgetSignal) IsNone() bool {
	return b.Level == BudgetNone
}

func (b BudgetSignal) String() string {
	switch {
	case b.IsNone():
		return "none"
	case b.Amount != nil:
		return fmt.Sprintf("%s %s%d", b.Level, b.Currency, *b.Amount)
	case b.Max != nil:
		return fmt.Sprintf("%s <=%s%d", b.Level, b.Currency, *b.Max)
	default:
		return string(b.Level)
	}
}

var (
	currencyAmountRe = regexp.MustCompile(`\$\s?\d+|\d+\s?\$`)
	ceilingRe        = regexp.MustCompile(`(under|below)\s*\$?\s*(\d+)`)
	nonDigitRe       = regexp.MustCompile(`[^0-9]`)
)

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// DetectBudget checks, in order, the low, mid and premium vocabularies, then a
// currency amount, then an "under/below N" ceiling. The first match wins. A
// currency amount that is itself qualified by "under" or "below" is reported as
// a ceiling; an "under N" elsewhere in the text does not replace the amount.
// Numbers that do not fit in an int yield no signal.
func (g *Gate) DetectBudget(text string) BudgetSignal {
	if text == "" {
		return BudgetSignal{}
	}
	s := strings.ToLower(text)

	switch {
	case containsAny(s, g.budgetLow):
		return BudgetSignal{Level: BudgetLow}
	case containsAny(s, g.budgetMid):
		return BudgetSignal{Level: BudgetMid}
	case containsAny(s, g.budgetHigh):
		return BudgetSignal{Level: BudgetHigh}
	}

	ceiling := ceilingRe.FindAllStringSubmatchIndex(s, -1)

	if loc := currencyAmountRe.FindStringIndex(s); loc != nil {
		for _, c := range ceiling {
			if c[0] < loc[1] && loc[0] < c[1] {
				return ceilingSignal(s[c[4]:c[5]])
			}
		}
		v, err := strconv.Atoi(nonDigitRe.ReplaceAllString(s[loc[0]:loc[1]], ""))
		if err != nil {
			return BudgetSignal{}
		}
		return BudgetSignal{Level: BudgetCustom, Amount: &v, Currency: "$"}
	}

	if len(ceiling) > 0 {
		return ceilingSignal(s[ceiling[0][4]:ceiling[0][5]])
	}

	return BudgetSignal{}
}

func ceilingSignal(digits string) BudgetSignal {
	v, err := strconv.Atoi(digits)
	if err != nil {
		return BudgetSignal{}
	}
	return BudgetSignal{Level: BudgetCustom, Max: &v, Currency: "$"}
}
