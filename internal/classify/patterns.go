package classify

import (
	"regexp"

	"go-intentflow/pkg/models"
	"go-intentflow/pkg/tools"
)

// indicator is one weighted signal for a classification kind.
type indicator struct {
	name   string
	regex  *regexp.Regexp
	weight float64
}

// compound adds a bonus when two independent signals co-occur.
type compound struct {
	name   string
	first  *regexp.Regexp
	second *regexp.Regexp
	kind   models.Kind
	bonus  float64
}

func ind(name, expr string, weight float64) indicator {
	return indicator{name: name, regex: regexp.MustCompile(expr), weight: weight}
}

// scoredKinds fixes the scoring order so results and reasoning are reproducible.
var scoredKinds = []models.Kind{
	models.PersonalData,
	models.GeneralKnowledge,
	models.ContextDependent,
	models.CurrentInfo,
}

var (
	emailNouns    = regexp.MustCompile(`\b(e-?mails?|inbox|gmail|mail|messages?)\b`)
	driveNouns    = regexp.MustCompile(`\b(files?|documents?|docs?|drive|spreadsheets?|sheets|slides|folders?|pdfs?)\b`)
	calendarNouns = regexp.MustCompile(`\b(calendar|meetings?|appointments?|events?|schedule[ds]?|agenda)\b`)
	searchCues    = regexp.MustCompile(`\b(from|about|regarding|subject|search|find|containing|named|called|titled|mention(s|ing)?)\b|"[^"]+"`)
	possessive    = regexp.MustCompile(`\b(my|our)\b`)
	leadingWho    = regexp.MustCompile(`^\s*who\b`)
	superlative   = regexp.MustCompile(`\b(top|best|leading|richest|highest|most|fastest|greatest|biggest|largest)\b`)
)

// dataNouns is every noun that maps to a personal data category.
var dataNouns = regexp.MustCompile(emailNouns.String() + "|" + driveNouns.String() + "|" + calendarNouns.String())

var indicatorTable = map[models.Kind][]indicator{
	models.PersonalData: {
		ind("possessive", `\b(my|our)\b`, 0.3),
		ind("personal action", `\b(show|list|find|check|read|open|search|get|fetch)\s+(me\s+)?(my|our)\b`, 0.2),
		ind("email noun", `\b(e-?mails?|inbox|gmail)\b`, 0.3),
		ind("file noun", `\b(files?|documents?|docs|drive|spreadsheets?|folders?)\b`, 0.25),
		ind("calendar noun", `\b(calendar|meetings?|appointments?|agenda)\b`, 0.25),
		ind("mail state", `\b(unread|sent|received|attachments?|replied)\b`, 0.2),
		ind("first person schedule", `\b(am i|do i have|have i got|did i)\b`, 0.2),
	},
	models.GeneralKnowledge: {
		ind("wh question", `^\s*(what|who|where|when|which|how)('s|\s+(is|are|was|were|does|do|did))\b`, 0.3),
		ind("fact of", `\b(capital|population|meaning|definition|inventor|author|origin|area|currency|language)\s+of\b`, 0.4),
		ind("explain", `\b(explain|define|describe|definition)\b`, 0.4),
		ind("how to", `\bhow\s+(do|does|to|can)\b`, 0.2),
		ind("why", `^\s*why\b`, 0.2),
		ind("subject area", `\b(history|science|math|physics|biology|chemistry|geography|theory|concept|difference between|formula)\b`, 0.2),
	},
	models.ContextDependent: {
		ind("referring pronoun", `\b(it|they|them|those|these|that one|he|she|him|her|their)\b`, 0.25),
		ind("follow-up opener", `^\s*(and|also|what about|how about|tell me more|more on|same for)\b`, 0.3),
		ind("back reference", `\b(above|previous|earlier|the last one|the first one|the second one|the same)\b`, 0.3),
		ind("about what", `\bwhat\s+(is|are|was|were)\s+(it|they|those|these|that|this)\s+about\b`, 0.3),
	},
	models.CurrentInfo: {
		ind("temporal", `\b(today|tonight|now|currently|right now|this (week|month|year)|latest|recent|breaking|live)\b`, 0.25),
		ind("live topic", `\b(news|headlines?|weather|forecast|stocks?|price|prices|scores?|exchange rate|election|trending)\b`, 0.35),
		ind("year", `\b20[2-9][0-9]\b`, 0.2),
		ind("who won", `\bwho\s+(won|is winning|leads|is leading)\b`, 0.3),
	},
}

var compoundTable = []compound{
	{name: "who+superlative", first: leadingWho, second: superlative, kind: models.CurrentInfo, bonus: 0.4},
	{name: "my+data noun", first: possessive, second: dataNouns, kind: models.PersonalData, bonus: 0.3},
}

// historyMarkers is the vocabulary the context tier scans earlier turns for.
var historyMarkers = map[models.Category]*regexp.Regexp{
	models.CategoryGmail:    regexp.MustCompile(`\b(e-?mails?|inbox|gmail|messages?|subject|sender|replied|unread)\b|from:`),
	models.CategoryDrive:    regexp.MustCompile(`\b(files?|documents?|docs?|drive|spreadsheets?|folders?|pdfs?|slides)\b|docs\.google\.com`),
	models.CategoryCalendar: regexp.MustCompile(`\b(calendar|meetings?|events?|appointments?|scheduled|agenda|invites?)\b`),
}

var factualMarkers = regexp.MustCompile(`\b(percent|statistics?|population|according to|studies|study|research|average|million|billion|century|history|capital|defined as|theory|founded|invented)\b|%`)

// recentTool is the query-free tool per category, used when history tells which data the
// user is talking about but not what to search for.
var recentTool = map[models.Category]string{
	models.CategoryGmail:    tools.GmailRecent,
	models.CategoryDrive:    tools.DriveRecent,
	models.CategoryCalendar: tools.CalendarUpcoming,
}

var searchTool = map[models.Category]string{
	models.CategoryGmail:    tools.GmailSearch,
	models.CategoryDrive:    tools.DriveSearch,
	models.CategoryCalendar: tools.CalendarSearch,
}

var personalCategories = []models.Category{models.CategoryGmail, models.CategoryDrive, models.CategoryCalendar}

var categoryNouns = map[models.Category]*regexp.Regexp{
	models.CategoryGmail:    emailNouns,
	models.CategoryDrive:    driveNouns,
	models.CategoryCalendar: calendarNouns,
}
