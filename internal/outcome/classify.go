package outcome

import (
	"regexp"
	"strings"
	"time"

	"aocd/lib/htmlutil"
	"aocd/lib/textutil"
)

// Rule maps a set of phrases to an outcome. Phrases are lowercase and
// matched against the response text with markup stripped and whitespace
// collapsed. `Build` receives that text before lowercasing, along with the
// raw response.
type Rule struct {
	Name    string
	Phrases []string
	Build   func(text, raw string) Outcome
}

func kindRule(name string, kind Kind, phrases ...string) Rule {
	return Rule{
		Name:    name,
		Phrases: phrases,
		Build: func(string, string) Outcome {
			return Outcome{Kind: kind}
		},
	}
}

// Rules are evaluated in order, the first rule with a matching phrase wins.
// Wording the site has not used before falls through to Unrecognized, it is
// never guessed as a verdict.
var Rules = []Rule{
	{
		Name: "already-solved",
		Phrases: []string{
			"you don't seem to be solving the right level",
			"did you already complete it",
			"you already solved",
			"you have already completed",
		},
		Build: func(text, raw string) Outcome {
			return Outcome{Kind: AlreadySolved, Previous: previousAnswer(text, raw)}
		},
	},
	kindRule("correct", Correct, "that's the right answer"),
	kindRule("too-low", TooLow, "too low"),
	kindRule("too-high", TooHigh, "too high"),
	kindRule("incorrect", Incorrect, "not the right answer"),
	{
		Name:    "rate-limited",
		Phrases: []string{"you gave an answer too recently"},
		Build: func(text, _ string) Outcome {
			return Outcome{Kind: RateLimited, Wait: waitHint(text)}
		},
	},
}

// Classify turns the site's response to an answer submission into an Outcome.
func Classify(raw string) Outcome {
	text := textutil.Collapse(htmlutil.MainText(raw))
	lowered := strings.ToLower(text)

	for _, rule := range Rules {
		if textutil.ContainsAny(lowered, rule.Phrases) {
			return rule.Build(text, raw)
		}
	}
	return Outcome{Kind: Unrecognized, Raw: raw}
}

const solvedAnswerPrefix = "Your puzzle answer was"

var previousAnswerRegex = regexp.MustCompile(`(?i)your puzzle answer was:?\s+(\S+?)\.?(?:\s|$)`)

func previousAnswer(text, raw string) string {
	codes := htmlutil.CodeAfter(raw, solvedAnswerPrefix)
	if len(codes) > 0 {
		return codes[0]
	}
	groups := previousAnswerRegex.FindStringSubmatch(text)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

// ExtractSolvedAnswers returns every answer a puzzle page lists as already
// accepted, in page order (part 1 first).
func ExtractSolvedAnswers(raw string) []string {
	codes := htmlutil.CodeAfter(raw, solvedAnswerPrefix)
	if len(codes) > 0 {
		return codes
	}

	text := textutil.Collapse(htmlutil.MainText(raw))
	var answers []string
	for _, groups := range previousAnswerRegex.FindAllStringSubmatch(text, -1) {
		answers = append(answers, groups[1])
	}
	return answers
}

var waitHintRegex = regexp.MustCompile(`(?i)you have ((?:\d+\s*[hms]\s*)+)left to wait`)

func waitHint(text string) time.Duration {
	groups := waitHintRegex.FindStringSubmatch(text)
	if len(groups) < 2 {
		return DefaultWait
	}
	compact := strings.ToLower(strings.Join(strings.Fields(groups[1]), ""))
	wait, err := time.ParseDuration(compact)
	if err != nil || wait <= 0 {
		return DefaultWait
	}
	return wait
}
