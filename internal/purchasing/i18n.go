package purchasing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

const (
	msgEmptyOrder        = "Please add at least one item"
	msgMissingUnit       = "Row %d: Item is required"
	msgInvalidQuantity   = "Row %d: Quantity must be greater than 0"
	msgNegativeCost      = "Row %d: Unit Cost cannot be negative"
	msgInvalidState      = "This purchase order can no longer be changed"
	msgNotFound          = "Purchase order not found"
	msgItemNotFound      = "Item not found"
	msgFieldOutOfRange   = "%s is out of range"
	msgRowOutOfRange     = "Row %d: %s is out of range"
	msgTotalsRecomputed  = "Totals recalculated"
	msgRecomputeEnqueued = "Recalculation queued"
)

var fieldLabels = map[string]string{
	"Quantity":            "मात्रा",
	"Unit Cost":           "इकाई लागत",
	"Discount Percentage": "छूट प्रतिशत",
	"Shipping":            "शिपिंग",
	"Total Cost":          "कुल लागत",
	"Net Total":           "शुद्ध योग",
	"Grand Total":         "कुल योग",
}

var supportedLanguages = []language.Tag{language.English, language.Hindi}

var messages = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range []string{msgEmptyOrder, msgMissingUnit, msgInvalidQuantity, msgNegativeCost, msgInvalidState, msgNotFound, msgItemNotFound,
		msgFieldOutOfRange, msgRowOutOfRange, msgTotalsRecomputed, msgRecomputeEnqueued} {
		_ = b.SetString(language.English, key, key)
	}
	_ = b.SetString(language.Hindi, msgEmptyOrder, "कृपया कम से कम एक आइटम जोड़ें")
	_ = b.SetString(language.Hindi, msgMissingUnit, "पंक्ति %d: आइटम आवश्यक है")
	_ = b.SetString(language.Hindi, msgInvalidQuantity, "पंक्ति %d: मात्रा 0 से अधिक होनी चाहिए")
	_ = b.SetString(language.Hindi, msgNegativeCost, "पंक्ति %d: इकाई लागत ऋणात्मक नहीं हो सकती")
	_ = b.SetString(language.Hindi, msgInvalidState, "यह क्रय आदेश अब बदला नहीं जा सकता")
	_ = b.SetString(language.Hindi, msgNotFound, "क्रय आदेश नहीं मिला")
	_ = b.SetString(language.Hindi, msgItemNotFound, "आइटम नहीं मिला")
	_ = b.SetString(language.Hindi, msgFieldOutOfRange, "%s सीमा से बाहर है")
	_ = b.SetString(language.Hindi, msgRowOutOfRange, "पंक्ति %d: %s सीमा से बाहर है")
	for label, hindi := range fieldLabels {
		_ = b.SetString(language.English, label, label)
		_ = b.SetString(language.Hindi, label, hindi)
	}
	_ = b.SetString(language.Hindi, msgTotalsRecomputed, "योग की पुनर्गणना हो गई")
	_ = b.SetString(language.Hindi, msgRecomputeEnqueued, "पुनर्गणना कतार में है")
	return b
}()

// Translator renders user-facing messages and currency amounts for one locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
	unit    currency.Unit
	scale   int
}

// NewTranslator resolves lang against the supported catalogs and parses the ISO currency code.
func NewTranslator(lang, currencyCode string) (*Translator, error) {
	tag := language.English
	if lang != "" {
		requested, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("purchasing: parse language %q: %w", lang, err)
		}
		_, idx, _ := language.NewMatcher(supportedLanguages).Match(requested)
		tag = supportedLanguages[idx]
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("purchasing: parse currency %q: %w", currencyCode, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messages)),
		unit:    unit,
		scale:   scale,
	}, nil
}

// Language returns the resolved locale.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Error returns the localized message for err. Unknown errors yield an empty string.
func (t *Translator) Error(err error) string {
	var (
		missing  *MissingUnitError
		quantity *InvalidQuantityError
		cost     *NegativeCostError
		empty    *EmptyOrderError
		bounds   *AmountOutOfRangeError
	)
	switch {
	case errors.As(err, &empty):
		return t.printer.Sprintf(msgEmptyOrder)
	case errors.As(err, &missing):
		return t.printer.Sprintf(msgMissingUnit, missing.Position)
	case errors.As(err, &quantity):
		return t.printer.Sprintf(msgInvalidQuantity, quantity.Position)
	case errors.As(err, &cost):
		return t.printer.Sprintf(msgNegativeCost, cost.Position)
	case errors.As(err, &bounds):
		field := t.printer.Sprintf(bounds.Field)
		if bounds.Position > 0 {
			return t.printer.Sprintf(msgRowOutOfRange, bounds.Position, field)
		}
		return t.printer.Sprintf(msgFieldOutOfRange, field)
	case errors.Is(err, ErrInvalidState):
		return t.printer.Sprintf(msgInvalidState)
	case errors.Is(err, ErrNotFound):
		return t.printer.Sprintf(msgNotFound)
	case errors.Is(err, ErrItemNotFound):
		return t.printer.Sprintf(msgItemNotFound)
	}
	return ""
}

// Text translates a fixed message key.
func (t *Translator) Text(key string) string {
	return t.printer.Sprintf(key)
}

// Currency formats amount with the currency symbol, rounded to the currency's standard digits.
func (t *Translator) Currency(amount decimal.Decimal) string {
	value := amount.Round(int32(t.scale)).InexactFloat64()
	return t.printer.Sprintf("%v %v", currency.Symbol(t.unit), number.Decimal(value, number.Scale(t.scale)))
}

// ForRequest returns a translator for the best supported match of an Accept-Language header.
func (t *Translator) ForRequest(acceptLanguage string) *Translator {
	if acceptLanguage == "" {
		return t
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t
	}
	_, idx, confidence := language.NewMatcher(supportedLanguages).Match(tags...)
	if confidence == language.No || supportedLanguages[idx] == t.tag {
		return t
	}
	clone := *t
	clone.tag = supportedLanguages[idx]
	clone.printer = message.NewPrinter(clone.tag, message.Catalog(messages))
	return &clone
}
