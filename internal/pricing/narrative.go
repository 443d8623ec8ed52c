package pricing

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.BritishEnglish)

var narrativeTemplates = map[string]string{
	CodeMaterials:         "Materials ({note}) come to {amount}.",
	CodeLabour:            "Labour is {amount} ({note}).",
	CodePermit:            "A council permit of {amount} is included because the skip has to go on the road.",
	CodeGrading:           "The steep slope adds {amount} for grading.",
	CodeDemolition:        "Removing the existing surface costs {amount} ({note}).",
	CodeScaffolding:       "Scaffolding adds {amount} for the raised deck ({note}).",
	CodeProjectManagement: "Project management is {amount} ({note}).",
	CodeContingency:       "We hold {amount} as contingency ({note}).",
	CodeProfit:            "Our margin is {amount} ({note}).",
}

// Narrative renders a plain-English walk through the line items followed
// by the range. It is deterministic for a given result.
func Narrative(r EstimateResult) string {
	var b strings.Builder
	for _, li := range r.LineItems {
		tmpl, ok := narrativeTemplates[li.Code]
		if !ok {
			tmpl = li.Label + ": {amount}."
		}
		s := strings.NewReplacer("{amount}", FormatPence(li.AmountPence), "{note}", li.Note).Replace(tmpl)
		b.WriteString(s)
		b.WriteByte(' ')
	}
	b.WriteString(printer.Sprintf("That puts the project at around £%d, within a range of £%d to £%d.", r.Estimate, r.Low, r.High))
	return b.String()
}

// FormatPence renders an amount in pence as pounds, dropping a zero pence part.
func FormatPence(p int64) string {
	if p%100 == 0 {
		return printer.Sprintf("£%d", p/100)
	}
	return printer.Sprintf("£%.2f", float64(p)/100)
}

// FormatWholePounds renders whole pounds with British digit grouping.
func FormatWholePounds(v int64) string {
	return printer.Sprintf("£%d", v)
}

func formatPounds(v float64) string {
	return FormatPence(toPence(v))
}

func formatQuantity(v float64) string {
	return printer.Sprintf("%v", roundTo(v, 2))
}

func formatPercent(rate float64) string {
	return printer.Sprintf("%v%%", roundTo(rate*100, 2))
}
