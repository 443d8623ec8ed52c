package extract

import (
	"regexp"
	"strings"

	"leadchat_backend/internal/intake/domain"
)

// serviceKeywords maps free-text vocabulary to service categories.
// Order matters: first match wins.
var serviceKeywords = []struct {
	service  domain.Service
	keywords []string
}{
	{domain.ServiceHardscaping, []string{"patio", "pattio", "patoi", "paving", "paveing", "paver", "flagstone", "hardscap", "hard landscap", "slabs", "slabbing", "block pav"}},
	{domain.ServiceDecking, []string{"deck", "dekking", "deking", "dekcing"}},
	{domain.ServiceMowing, []string{"mow", "grass cut", "cut the grass", "cut my grass", "cutting the grass", "lawn care", "lawn cut", "lawn maintenance", "strimming"}},
	{domain.ServicePlanting, []string{"planting", "plants", "plant ", "shrub", "flower bed", "flowerbed", "border", "turf", "softscap", "hedge", "tree", "bulbs", "seeding"}},
	{domain.ServiceFencing, []string{"fenc", "fense", "fance", "fecne"}},
	{domain.ServiceFraming, []string{"pergola", "pergula", "raised bed", "timber frame", "wooden frame", "framing", "arbor", "arbour", "gazebo", "timber structure"}},
	{domain.ServiceLandscaping, []string{"landscap", "lanscap", "landscaping", "garden makeover", "garden redesign", "garden design", "garden renovation", "garden overhaul", "redesign", "makeover", "whole garden", "general garden"}},
}

// serviceStems are the single-word forms matched with a one-edit tolerance
// when no keyword hit.
var serviceStems = []struct {
	service domain.Service
	word    string
}{
	{domain.ServiceDecking, "decking"},
	{domain.ServicePlanting, "planting"},
	{domain.ServiceFencing, "fencing"},
	{domain.ServiceFraming, "pergola"},
	{domain.ServiceLandscaping, "landscaping"},
}

const numPattern = `(\d+(?:[.,]\d+)?)`

var (
	unitOpt = `(?:\s*(?:metres|meters|metre|meter|mtrs|mtr|m))?`

	dimsRe = regexp.MustCompile(`\b` + numPattern + unitOpt + `\s*(?:x|×|\*|\bby\b)\s*` + numPattern + unitOpt)

	heightAfterRe  = regexp.MustCompile(`\b` + numPattern + `\s*(cm|mm|metres|meters|metre|meter|m)?\s*(?:high|tall|off the ground|above(?: the)? ground|from(?: the)? ground|in height)\b`)
	heightBeforeRe = regexp.MustCompile(`\b(?:height|raised|elevated|off the ground by)\b[^\d]{0,20}?` + numPattern + `\s*(cm|mm|metres|meters|metre|meter|m)?`)

	areaRe      = regexp.MustCompile(`\b` + numPattern + `\s*(?:m2|m²|sq\.?\s?m(?:etres|eters|etre|eter)?|sqm|square\s+met(?:re|er)s?|(?:metres|meters)\s+squared)`)
	areaFeetRe  = regexp.MustCompile(`\b` + numPattern + `\s*(?:sq\.?\s?ft|sqft|square\s+f(?:ee|oo)t)`)
	linearRe    = regexp.MustCompile(`\b` + numPattern + `\s*(?:linear\s+|running\s+)?(?:metres|meters|metre|meter|mtrs|mtr|lm|m)\b`)
	bareNumRe   = regexp.MustCompile(`^(?:about|around|roughly|approx(?:imately)?|maybe|probably|circa)?\s*` + numPattern + `\s*(?:m|metres|meters|ish)?\s*$`)
	bareIntRe   = regexp.MustCompile(`^(?:about|around|maybe)?\s*(\d{1,2})\s*$`)
	luxuryRe    = regexp.MustCompile(`\b(?:luxury|luxurious|high[- ]end|top of the range|top[- ]end|porcelain|composite|oak|bespoke)\b`)
	premiumRe   = regexp.MustCompile(`\b(?:premium|mid[- ]?range|middle of the range|sandstone|natural stone|indian stone|hardwood|better quality|good quality)\b`)
	standardRe  = regexp.MustCompile(`\b(?:standard|basic|cheap|cheapest|economy|entry[- ]level|softwood|concrete slabs|treated timber|simple)\b`)
	yesRe       = regexp.MustCompile(`^(?:yes|yess+|yse|yeah|yea|yeh|yep|yup|ya|aye|sure|certainly|correct|definitely|absolutely|of course|ok|okay|y)\b`)
	noRe        = regexp.MustCompile(`^(?:no|noo+|nop|nope|nah|nay|not really|none|negative|n)\b`)

	excavatorNegRe = regexp.MustCompile(`\b(?:no|not|without|can'?t|cannot|couldn'?t|won'?t)\b[^.!?,]{0,20}\b(?:digger|excavator|machine|machinery|side access|rear access)\b|\bthrough the house\b|\bhand[- ]?dig`)
	excavatorPosRe = regexp.MustCompile(`\b(?:digger|excavator|machine|machinery) (?:can|could|will) (?:get|fit)\b|\b(?:digger|excavator|machine) access\b|\baccess for (?:a )?(?:digger|excavator|machine)\b|\b(?:side|rear|wide|good|easy) access\b`)
	accessNegRe    = regexp.MustCompile(`\b(?:narrow|tight|limited|restricted|difficult|poor|no) access\b|\baccess is (?:narrow|tight|limited|restricted|difficult|poor)\b`)
	accessPosRe    = regexp.MustCompile(`\baccess is (?:fine|good|easy|ok|okay|wide)\b`)

	drivewayNegRe = regexp.MustCompile(`\b(?:no|not|without|don'?t have|haven'?t got)\b[^.!?,]{0,15}\b(?:driveway|drive|off[- ]road parking|space for (?:a )?skip|room for (?:a )?skip)\b|\bskip (?:will|would|has to|needs to|must) (?:go|sit|be) on the (?:road|street)\b|\bon[- ]street parking\b|\bon the road\b`)
	drivewayPosRe = regexp.MustCompile(`\b(?:driveway|off[- ]road parking|space for (?:a )?skip|room for (?:a )?skip|on the drive)\b`)

	demolitionNegRe = regexp.MustCompile(`\b(?:no demolition|nothing to (?:remove|take up|rip out|dig up)|bare (?:ground|soil|earth)|from scratch|new build|nothing there|just (?:grass|soil|lawn|mud)|empty (?:space|plot|area)|no (?:old|existing) (?:patio|deck|decking|surface|slabs))\b`)
	demolitionPosRe = regexp.MustCompile(`\b(?:demolish|demolition|rip(?:ping)? (?:out|up)|tear (?:out|up|down)|take up|taking up|break(?:ing)? up|dig(?:ging)? up|remove the (?:old|existing)|removing the (?:old|existing)|(?:old|existing) (?:patio|deck|decking|slabs|paving|concrete|surface)|replace|replacing)\b`)

	flatNegationRe = regexp.MustCompile(`\b(?:no slope|not sloped|not sloping|isn'?t sloped|no gradient)\b`)
	steepRe        = regexp.MustCompile(`\b(?:steep|steeply|very sloped|big slope|hilly|hillside|on a hill|severe slope|sharp slope)\b`)
	moderateRe     = regexp.MustCompile(`\b(?:moderate|slight|gentle|gradual|small|bit of a|some) (?:slope|incline|gradient|hill)\b|\b(?:sloped|sloping|slopes?|not flat|uneven)\b|^moderate(?:ly)?\b`)
	flatRe         = regexp.MustCompile(`\b(?:flat|level ground|level garden|it'?s level|fairly level|pretty level|dead level|even ground|even surface)\b|^level\b`)

	weeksRe       = regexp.MustCompile(`\b(\d+|a|an|one|two|three|four|five|six|few|a few|couple|a couple|couple of|a couple of)\s*(weeks?|wks?|months?|mths?)\b`)
	overgrownRe   = regexp.MustCompile(`\b(?:overgrown|jungle|very long|really long|knee[- ]high|out of control|not been (?:cut|mowed|mown)|hasn'?t been (?:cut|mowed|mown))\b`)
	tidyRe        = regexp.MustCompile(`\b(?:recently (?:cut|mowed|mown)|cut (?:last|this) week|short|tidy|well kept|under control)\b`)
	lawnContextRe = regexp.MustCompile(`\b(?:grass|lawn|mow|mowed|mown|cut)\b`)
	gatesRe       = regexp.MustCompile(`\b(\d+|no|zero|one|a|an|single|two|three|four|five)\s+(?:(?:garden|side|front|back|pedestrian|double|driveway|wooden|metal)\s+)?gates?\b`)

	startRe = regexp.MustCompile(`\b(?:asap|as soon as possible|straight away|right away|immediately|next week|next month|this month|this summer|this spring|this autumn|this winter|next year|in (?:the )?(?:spring|summer|autumn|winter)|(?:start|begin|starting|begin in|kick off)\b[^.!?]{0,12}?\bin (?:\d+|a|one|two|three|four|six|a few|a couple of) (?:weeks?|months?)|no rush|flexible)\b`)

	emailRe       = regexp.MustCompile(`[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	phoneCandRe   = regexp.MustCompile(`(?:\+|\b)\d[\d\s\-().]{7,}\d`)
	budgetRe      = regexp.MustCompile(`(?:(£|\$|€)\s*|\b(gbp|eur|usd)\s*|\b)(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*(k\b|grand\b|thousand\b|pounds?\b|quid\b|gbp\b)?`)
	budgetWordRe  = regexp.MustCompile(`\b(?:budget|spend|afford|up to)\b`)
	unitAfterRe   = regexp.MustCompile(`^\s*(?:m\b|m2|m²|sq|metres?|meters?|mtrs?|deck|decking|patio|x\b|×|\*|by\b|ft\b|feet|foot|cm\b|mm\b|weeks?|wks?|months?|days?|years?|gates?|high|tall|hours?|h\b|%)`)
	strictPostRe  = regexp.MustCompile(`\b([a-z]{1,2}\d[a-z\d]?)\s*(\d[a-z]{2})\b`)
	wholePostRe   = regexp.MustCompile(`^([a-z]{1,2}\d[a-z\d]?)\s*(\d[a-z]{2})$`)
	deckBareRe    = regexp.MustCompile(`^(?:about|around|roughly|maybe)?\s*` + numPattern + `\s*(cm|mm|metres|meters|metre|meter|m)?\s*$`)
	looseTokenRe  = regexp.MustCompile(`\b([a-z0-9]{2,8})\b`)
	selfIntroRe   = regexp.MustCompile(`\b(?:my name is|my name'?s|call me)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,3})`)
	softIntroRe   = regexp.MustCompile(`^(?:hi|hello|hey)?[,!\s]*(?:i am|i'm|im)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,2})\s*[.!]?$`)
	thisIsIntroRe = regexp.MustCompile(`^(?:hi|hello|hey)?[,!\s]*(?:this is|it'?s)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*){0,2})\s*[.!]?$`)
	nameTokenRe   = regexp.MustCompile(`^[a-z][a-z'\-.]*$`)
	interrogative = regexp.MustCompile(`\b(?:what|whats|why|how|when|where|who|which)\b|^(?:can|could|do|does|is|are|would|should)\b`)
)

var upsellKeywords = []struct {
	name     string
	keywords *regexp.Regexp
}{
	{"lighting", regexp.MustCompile(`\b(?:lighting|lights|spotlights|led)\b`)},
	{"drainage", regexp.MustCompile(`\b(?:drainage|drains?|soakaway)\b`)},
	{"irrigation", regexp.MustCompile(`\b(?:irrigation|sprinklers?|watering system)\b`)},
	{"edging", regexp.MustCompile(`\b(?:edging|edges)\b`)},
	{"planters", regexp.MustCompile(`\b(?:planters?)\b`)},
	{"seating", regexp.MustCompile(`\b(?:seating|bench|benches)\b`)},
}

var soilKeywords = []struct {
	subBase domain.SubBase
	note    string
	pattern *regexp.Regexp
}{
	{domain.SubBaseHardstanding, "existing hardstanding", regexp.MustCompile(`\b(?:concrete base|existing concrete|tarmac|hardstanding|hard standing)\b`)},
	{domain.SubBaseClay, "clay soil", regexp.MustCompile(`\bclay(?:ey)?\b`)},
	{domain.SubBaseSand, "sandy soil", regexp.MustCompile(`\b(?:sandy|sand)\b`)},
	{domain.SubBaseRock, "rocky or chalky ground", regexp.MustCompile(`\b(?:rock|rocky|stony|chalk|chalky)\b`)},
	{domain.SubBaseSoil, "loam soil", regexp.MustCompile(`\b(?:loam|loamy|topsoil)\b`)},
}

// nameStopwords are words that make a short reply something other than a name.
var nameStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "not": true,
	"yes": true, "no": true, "ok": true, "okay": true, "thanks": true, "thank": true,
	"please": true, "hi": true, "hello": true, "hey": true, "sure": true, "maybe": true,
	"flat": true, "steep": true, "moderate": true, "slope": true, "level": true,
	"standard": true, "premium": true, "luxury": true, "none": true, "nope": true,
	"looking": true, "interested": true, "after": true, "wanting": true, "thinking": true,
	"just": true, "happy": true, "fine": true, "good": true, "great": true, "asap": true,
	"garden": true, "lawn": true, "grass": true, "gate": true, "gates": true, "skip": true,
	"driveway": true, "access": true, "digger": true, "don't": true, "dont": true,
	"know": true, "unsure": true, "idk": true, "soon": true, "later": true, "overgrown": true,
	"on": true, "at": true, "me": true, "to": true, "for": true, "is": true, "it": true,
	"in": true, "of": true, "with": true, "here": true, "there": true, "we": true, "you": true,
	"be": true, "by": true, "from": true, "my": true, "i": true, "so": true, "too": true,
	"also": true, "well": true, "really": true, "very": true, "bit": true, "about": true,
	"it's": true, "its": true, "this": true, "i'm": true, "im": true,
}

var numberWords = map[string]float64{
	"a": 1, "an": 1, "one": 1, "single": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "few": 3, "a few": 3, "couple": 2, "a couple": 2,
	"couple of": 2, "a couple of": 2, "no": 0, "zero": 0,
}

// looksLikeKeyword reports whether a word belongs to the extractor's own
// vocabulary; such replies are never names.
func looksLikeKeyword(word string) bool {
	if nameStopwords[word] {
		return true
	}
	for _, group := range serviceKeywords {
		for _, kw := range group.keywords {
			if strings.HasPrefix(word, strings.TrimSpace(kw)) {
				return true
			}
		}
	}
	return luxuryRe.MatchString(word) || premiumRe.MatchString(word) || standardRe.MatchString(word)
}
