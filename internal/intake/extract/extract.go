// Package extract turns one free-text utterance into a sparse set of
// recognised project facts.
//
// Extraction is pure and never fails: anything not matched unambiguously is
// left absent. Rules run in a fixed order and every rule that reads a number
// blanks the span it used, so a later rule never reinterprets the same digits
// (a dimension can not become a budget, a phone number can not become an area).
package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"leadchat_backend/internal/intake/domain"
	"leadchat_backend/platform/phone"
)

// Context carries the dialogue signals used to disambiguate short replies.
type Context struct {
	// Asking is the field the last question was about.
	Asking domain.Field
	// Service is the service already known for the conversation, if any.
	Service domain.Service
}

const (
	maxDeckHeightMetres = 5.0
	bareHeightLimit     = 3.0
	maxDimension        = 10000.0
	minBudget           = 100
	maxBudget           = 9_999_999
	sqFtToSqM           = 0.092903
	weeksPerMonth       = 4.33
	overgrownAfterWeeks = 2.0
	maxNameWords        = 4
	maxLoosePostWords   = 3
)

// Extract parses one utterance.
func Extract(utterance string, ctx Context) domain.Extraction {
	x := &extractor{raw: normalize(utterance), ctx: ctx}
	x.text = x.raw
	if x.text == "" {
		return domain.Extraction{}
	}
	x.run()
	return x.ex
}

type extractor struct {
	raw  string // normalised input, never modified
	text string // working copy; consumed spans are blanked
	ctx  Context
	ex   domain.Extraction
	// service is the service used for context-gated rules: the one named in
	// this utterance, otherwise the conversation's.
	service domain.Service
}

func (x *extractor) run() {
	x.classifyService()
	x.email()
	x.phone()
	x.strictPostcode()
	x.dimensions()
	x.deckHeight()
	x.area()
	x.materialTier()
	x.excavatorAccess()
	x.drivewayAccess()
	x.demolition()
	x.slope()
	x.startTiming()
	x.overgrowth()
	x.gates()
	x.genericYesNo()
	x.budget()
	x.loosePostcode()
	x.upsells()
	x.soil()
	x.name()
}

// normalize folds diacritics, lowercases and collapses whitespace.
func normalize(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	out = quoteReplacer.Replace(out)
	return strings.Join(strings.Fields(out), " ")
}

var quoteReplacer = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`)

// consume blanks text[start:end] keeping byte offsets stable.
func (x *extractor) consume(start, end int) {
	x.text = x.text[:start] + strings.Repeat(" ", end-start) + x.text[end:]
}

func group(s string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}

func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ---- service ----

func (x *extractor) classifyService() {
	x.service = x.ctx.Service
	if s, ok := ClassifyService(x.raw); ok {
		x.ex.Service = domain.Ptr(s)
		x.service = s
	}
}

// ClassifyService returns the first service category whose vocabulary
// appears in the (already normalised) text.
func ClassifyService(text string) (domain.Service, bool) {
	padded := " " + text + " "
	for _, group := range serviceKeywords {
		for _, kw := range group.keywords {
			if containsAtWordStart(padded, kw) {
				return group.service, true
			}
		}
	}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len(tok) < 6 {
			continue
		}
		for _, stem := range serviceStems {
			if withinOneEdit(tok, stem.word) {
				return stem.service, true
			}
		}
	}
	return "", false
}

func containsAtWordStart(text, kw string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], kw)
		if i < 0 {
			return false
		}
		at := offset + i
		if at == 0 || !isWordByte(text[at-1]) {
			return true
		}
		offset = at + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion, substitution or adjacent transposition.
func withinOneEdit(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if la-lb > 1 || lb-la > 1 {
		return false
	}
	i := 0
	for i < la && i < lb && a[i] == b[i] {
		i++
	}
	switch {
	case la == lb:
		if a[i+1:] == b[i+1:] {
			return true
		}
		return i+1 < la && a[i] == b[i+1] && a[i+1] == b[i] && a[i+2:] == b[i+2:]
	case la > lb:
		return a[i+1:] == b[i:]
	default:
		return a[i:] == b[i+1:]
	}
}

// ---- contact ----

func (x *extractor) email() {
	loc := emailRe.FindStringIndex(x.text)
	if loc == nil {
		return
	}
	x.ex.Email = domain.Ptr(strings.TrimRight(x.text[loc[0]:loc[1]], "."))
	x.consume(loc[0], loc[1])
}

func (x *extractor) phone() {
	for _, loc := range phoneCandRe.FindAllStringIndex(x.text, -1) {
		cand := x.text[loc[0]:loc[1]]
		// A longer run may glue a phone number to a preceding figure; retry
		// from each later token.
		offset := 0
		for _, tok := range strings.Fields(cand) {
			at := offset + strings.Index(cand[offset:], tok)
			offset = at + len(tok)
			if phone.CountDigits(cand[at:]) < 10 {
				break
			}
			if normalized, ok := phone.Accept(cand[at:]); ok {
				x.ex.Phone = domain.Ptr(normalized)
				x.consume(loc[0]+at, loc[1])
				return
			}
		}
	}
}

func (x *extractor) strictPostcode() {
	loc := strictPostRe.FindStringSubmatchIndex(x.text)
	if loc == nil {
		return
	}
	x.ex.Postcode = domain.Ptr(formatPostcode(group(x.text, loc, 1), group(x.text, loc, 2)))
	x.ex.PostcodeStrict = true
	x.consume(loc[0], loc[1])
}

// StrictPostcode reports whether s is a full UK postcode and returns it in
// canonical form ("SW1A 1AA").
func StrictPostcode(s string) (string, bool) {
	m := wholePostRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return "", false
	}
	return formatPostcode(m[1], m[2]), true
}

func formatPostcode(outward, inward string) string {
	return strings.ToUpper(outward) + " " + strings.ToUpper(inward)
}

func (x *extractor) loosePostcode() {
	if x.ex.Postcode != nil || x.ctx.Asking != domain.FieldPostcode {
		return
	}
	if len(strings.Fields(x.raw)) > maxLoosePostWords {
		return
	}
	for _, m := range looseTokenRe.FindAllStringSubmatch(x.text, -1) {
		tok := m[1]
		if strings.ContainsFunc(tok, unicode.IsDigit) && strings.ContainsFunc(tok, unicode.IsLetter) {
			x.ex.Postcode = domain.Ptr(strings.ToUpper(tok))
			return
		}
	}
}

// ---- geometry ----

func (x *extractor) dimensions() {
	loc := dimsRe.FindStringSubmatchIndex(x.text)
	if loc == nil {
		return
	}
	l, okL := parseDecimal(group(x.text, loc, 1))
	w, okW := parseDecimal(group(x.text, loc, 2))
	if !okL || !okW || l <= 0 || w <= 0 || l > maxDimension || w > maxDimension {
		return
	}
	x.ex.Length = domain.Ptr(l)
	x.ex.Width = domain.Ptr(w)
	x.consume(loc[0], loc[1])
}

// deckHeight runs before area so a height phrase never reads as an area.
func (x *extractor) deckHeight() {
	if x.service != domain.ServiceDecking && x.ctx.Asking != domain.FieldDeckHeight {
		return
	}
	for _, re := range []*regexp.Regexp{heightAfterRe, heightBeforeRe} {
		loc := re.FindStringSubmatchIndex(x.text)
		if loc == nil {
			continue
		}
		if v, ok := heightValue(group(x.text, loc, 1), group(x.text, loc, 2)); ok {
			x.ex.DeckHeight = domain.Ptr(v)
			x.consume(loc[0], loc[1])
			return
		}
	}
	if x.ctx.Asking != domain.FieldDeckHeight {
		return
	}
	trimmed := strings.TrimSpace(x.text)
	if m := deckBareRe.FindStringSubmatch(trimmed); m != nil {
		if v, ok := heightValue(m[1], m[2]); ok {
			x.ex.DeckHeight = domain.Ptr(v)
			x.text = strings.Repeat(" ", len(x.text))
		}
	}
}

func heightValue(num, unit string) (float64, bool) {
	v, ok := parseDecimal(num)
	if !ok || v <= 0 {
		return 0, false
	}
	switch unit {
	case "cm":
		v /= 100
	case "mm":
		v /= 1000
	case "":
		if v >= bareHeightLimit {
			return 0, false
		}
	}
	if v > maxDeckHeightMetres {
		return 0, false
	}
	return round(v, 3), true
}

func (x *extractor) area() {
	if x.ex.Length != nil {
		return
	}
	if loc := areaRe.FindStringSubmatchIndex(x.text); loc != nil {
		if v, ok := parseDecimal(group(x.text, loc, 1)); ok && v > 0 {
			x.ex.Area = domain.Ptr(v)
			x.consume(loc[0], loc[1])
			return
		}
	}
	if loc := areaFeetRe.FindStringSubmatchIndex(x.text); loc != nil {
		if v, ok := parseDecimal(group(x.text, loc, 1)); ok && v > 0 {
			x.ex.Area = domain.Ptr(round(v*sqFtToSqM, 2))
			x.consume(loc[0], loc[1])
			return
		}
	}
	if x.service == domain.ServiceFencing {
		for _, loc := range linearRe.FindAllStringSubmatchIndex(x.text, -1) {
			if strings.HasPrefix(x.text[loc[1]:], "²") {
				continue
			}
			if v, ok := parseDecimal(group(x.text, loc, 1)); ok && v > 0 {
				x.ex.Area = domain.Ptr(v)
				x.consume(loc[0], loc[1])
				return
			}
		}
	}
	if x.ctx.Asking != domain.FieldDimensions {
		return
	}
	if m := bareNumRe.FindStringSubmatch(strings.TrimSpace(x.text)); m != nil {
		if v, ok := parseDecimal(m[1]); ok && v > 0 && v <= maxDimension*maxDimension {
			x.ex.Area = domain.Ptr(v)
			x.text = strings.Repeat(" ", len(x.text))
		}
	}
}

// ---- tier and site conditions ----

func (x *extractor) materialTier() {
	switch {
	case luxuryRe.MatchString(x.raw):
		x.ex.MaterialTier = domain.Ptr(domain.TierLuxury)
	case premiumRe.MatchString(x.raw):
		x.ex.MaterialTier = domain.Ptr(domain.TierPremium)
	case standardRe.MatchString(x.raw):
		x.ex.MaterialTier = domain.Ptr(domain.TierStandard)
	}
}

func (x *extractor) excavatorAccess() {
	switch {
	case excavatorNegRe.MatchString(x.raw):
		x.ex.ExcavatorAccess = domain.Ptr(false)
	case excavatorPosRe.MatchString(x.raw):
		x.ex.ExcavatorAccess = domain.Ptr(true)
	case x.ctx.Asking != domain.FieldExcavatorAccess:
	case accessNegRe.MatchString(x.raw):
		x.ex.ExcavatorAccess = domain.Ptr(false)
	case accessPosRe.MatchString(x.raw):
		x.ex.ExcavatorAccess = domain.Ptr(true)
	}
}

func (x *extractor) drivewayAccess() {
	switch {
	case drivewayNegRe.MatchString(x.raw):
		x.ex.DrivewayAccess = domain.Ptr(false)
	case drivewayPosRe.MatchString(x.raw):
		x.ex.DrivewayAccess = domain.Ptr(true)
	}
}

func (x *extractor) demolition() {
	switch {
	case demolitionNegRe.MatchString(x.raw):
		x.ex.Demolition = domain.Ptr(false)
	case demolitionPosRe.MatchString(x.raw):
		x.ex.Demolition = domain.Ptr(true)
	}
}

func (x *extractor) slope() {
	switch {
	case flatNegationRe.MatchString(x.raw):
		x.ex.Slope = domain.Ptr(domain.SlopeFlat)
	case steepRe.MatchString(x.raw):
		x.ex.Slope = domain.Ptr(domain.SlopeSteep)
	case moderateRe.MatchString(x.raw):
		x.ex.Slope = domain.Ptr(domain.SlopeModerate)
	case flatRe.MatchString(x.raw):
		x.ex.Slope = domain.Ptr(domain.SlopeFlat)
	}
}

// ---- service extras ----

func (x *extractor) startTiming() {
	loc := startRe.FindStringIndex(x.text)
	if loc == nil {
		return
	}
	x.ex.StartTiming = domain.Ptr(strings.TrimSpace(x.text[loc[0]:loc[1]]))
	x.consume(loc[0], loc[1])
}

func (x *extractor) overgrowth() {
	if x.service != domain.ServiceMowing && x.ctx.Asking != domain.FieldOvergrowth && !lawnContextRe.MatchString(x.raw) {
		return
	}
	if loc := weeksRe.FindStringSubmatchIndex(x.text); loc != nil {
		count, unit := group(x.text, loc, 1), group(x.text, loc, 2)
		if n, ok := countValue(count); ok {
			weeks := n
			if strings.HasPrefix(unit, "m") {
				weeks = n * weeksPerMonth
			}
			x.ex.Overgrown = domain.Ptr(weeks > overgrownAfterWeeks)
			x.consume(loc[0], loc[1])
			return
		}
	}
	switch {
	case overgrownRe.MatchString(x.raw):
		x.ex.Overgrown = domain.Ptr(true)
	case tidyRe.MatchString(x.raw):
		x.ex.Overgrown = domain.Ptr(false)
	}
}

func countValue(s string) (float64, bool) {
	if v, ok := numberWords[s]; ok {
		return v, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

// indefiniteCounts read as "a gate" rather than a count unless the gate
// count was asked for.
var indefiniteCounts = map[string]bool{"a": true, "an": true, "single": true}

func (x *extractor) gates() {
	if loc := gatesRe.FindStringSubmatchIndex(x.text); loc != nil {
		word := group(x.text, loc, 1)
		if n, ok := countValue(word); ok && (!indefiniteCounts[word] || x.ctx.Asking == domain.FieldGateCount) {
			x.ex.GateCount = domain.Ptr(int(n))
			x.consume(loc[0], loc[1])
			return
		}
	}
	if x.ctx.Asking != domain.FieldGateCount {
		return
	}
	if m := bareIntRe.FindStringSubmatch(strings.TrimSpace(x.text)); m != nil {
		n, _ := strconv.Atoi(m[1])
		x.ex.GateCount = domain.Ptr(n)
		x.text = strings.Repeat(" ", len(x.text))
	}
}

// genericYesNo applies a leading yes/no to the asked field when no specific
// keyword already answered it.
func (x *extractor) genericYesNo() {
	var answer bool
	switch {
	case yesRe.MatchString(x.raw):
		answer = true
	case noRe.MatchString(x.raw):
		answer = false
	default:
		return
	}
	switch x.ctx.Asking {
	case domain.FieldExcavatorAccess:
		if x.ex.ExcavatorAccess == nil {
			x.ex.ExcavatorAccess = domain.Ptr(answer)
		}
	case domain.FieldDrivewayAccess:
		if x.ex.DrivewayAccess == nil {
			x.ex.DrivewayAccess = domain.Ptr(answer)
		}
	case domain.FieldDemolition:
		if x.ex.Demolition == nil {
			x.ex.Demolition = domain.Ptr(answer)
		}
	case domain.FieldOvergrowth:
		if x.ex.Overgrown == nil {
			x.ex.Overgrown = domain.Ptr(answer)
		}
	case domain.FieldGateCount:
		if x.ex.GateCount == nil && !answer {
			x.ex.GateCount = domain.Ptr(0)
		}
	}
}

// ---- budget ----

func (x *extractor) budget() {
	budgetWord := budgetWordRe.MatchString(x.raw)
	for _, loc := range budgetRe.FindAllStringSubmatchIndex(x.text, -1) {
		symbol, code := group(x.text, loc, 1), group(x.text, loc, 2)
		num, suffix := group(x.text, loc, 3), group(x.text, loc, 4)

		currency := symbol != "" || code != "" || suffix == "pound" || suffix == "pounds" || suffix == "quid" || suffix == "gbp"
		// "20 m2" or "a 20k patio" is a size, not money; only a currency
		// marker overrides a following unit.
		if (suffix == "" || !currency) && unitAfterRe.MatchString(x.text[loc[1]:]) {
			continue
		}
		multiplied := suffix == "k" || suffix == "grand" || suffix == "thousand"
		if !currency && !multiplied && !budgetWord && x.ctx.Asking != domain.FieldBudget {
			continue
		}
		digits := strings.ReplaceAll(num, ",", "")
		if !currency && !budgetWord && looksLikePhone(digits) {
			continue
		}
		v, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			continue
		}
		if multiplied {
			v *= 1000
		}
		amount := int(math.Round(v))
		if amount < minBudget || amount > maxBudget {
			continue
		}
		x.ex.Budget = domain.Ptr(amount)
		x.ex.ExplicitCurrency = currency || budgetWord
		x.consume(loc[0], loc[1])
		return
	}
}

func looksLikePhone(digits string) bool {
	whole, _, _ := strings.Cut(digits, ".")
	return len(whole) >= 9 || (strings.HasPrefix(whole, "0") && len(whole) >= 5)
}

// ---- notes ----

func (x *extractor) upsells() {
	for _, u := range upsellKeywords {
		if u.keywords.MatchString(x.raw) {
			x.ex.Upsells = append(x.ex.Upsells, u.name)
		}
	}
}

func (x *extractor) soil() {
	for _, s := range soilKeywords {
		if s.pattern.MatchString(x.raw) {
			x.ex.SubBase = domain.Ptr(s.subBase)
			x.ex.SoilNote = domain.Ptr(s.note)
			return
		}
	}
}

// ---- name ----

var titleCaser = cases.Title(language.BritishEnglish)

func (x *extractor) name() {
	if m := selfIntroRe.FindStringSubmatch(x.raw); m != nil {
		if n, ok := cleanName(m[1], true); ok {
			x.ex.FullName = domain.Ptr(n)
			x.ex.SelfIntroduced = true
			return
		}
	}
	if m := softIntroRe.FindStringSubmatch(x.raw); m != nil && !describesSite(m[1]) {
		if n, ok := cleanName(m[1], false); ok {
			x.ex.FullName = domain.Ptr(n)
			x.ex.SelfIntroduced = true
			return
		}
	}
	// "it's X" and "this is X" answer whatever was asked, so they only name
	// someone when the name was asked for.
	if x.ctx.Asking == domain.FieldFullName {
		if m := thisIsIntroRe.FindStringSubmatch(x.raw); m != nil && !describesSite(m[1]) {
			if n, ok := cleanName(m[1], false); ok {
				x.ex.FullName = domain.Ptr(n)
				return
			}
		}
	}
	if !x.ex.IsEmpty() {
		return
	}
	if strings.ContainsAny(x.raw, "@?0123456789") || interrogative.MatchString(x.raw) {
		return
	}
	if n, ok := cleanName(strings.Trim(x.raw, " .!,"), false); ok {
		x.ex.FullName = domain.Ptr(n)
	}
}

// describesSite reports whether a phrase reads as an answer about the site
// or the timing rather than a name ("sloped", "sandy", "flexible").
func describesSite(phrase string) bool {
	for _, re := range []*regexp.Regexp{flatNegationRe, steepRe, moderateRe, flatRe, overgrownRe, tidyRe, startRe, yesRe, noRe} {
		if re.MatchString(phrase) {
			return true
		}
	}
	for _, s := range soilKeywords {
		if s.pattern.MatchString(phrase) {
			return true
		}
	}
	return false
}

// cleanName validates a candidate name. With cut set, trailing words after a
// connector ("and", "from") are dropped first.
func cleanName(candidate string, cut bool) (string, bool) {
	words := strings.Fields(candidate)
	if cut {
		for i, w := range words {
			if w == "and" || w == "from" || w == "in" || w == "i" || w == "my" || w == "but" {
				words = words[:i]
				break
			}
		}
	}
	if len(words) == 0 || len(words) > maxNameWords {
		return "", false
	}
	for _, w := range words {
		if !nameTokenRe.MatchString(w) || looksLikeKeyword(w) {
			return "", false
		}
	}
	return titleCaser.String(strings.Join(words, " ")), true
}
