package credential

import "regexp"

// Format patterns per provider. Anchored so a valid key embedded in junk
// does not pass.
var (
	anthropicPattern = regexp.MustCompile(`^sk-ant-[A-Za-z0-9_-]{95,}$`)
	// OpenAI issues both legacy user keys and project-scoped keys. Project
	// keys carry underscores and dashes in the body; legacy keys are plain
	// alphanumeric.
	openaiLegacyPattern  = regexp.MustCompile(`^sk-[A-Za-z0-9]{32,}$`)
	openaiProjectPattern = regexp.MustCompile(`^sk-proj-[A-Za-z0-9_-]{32,}$`)
	googlePattern        = regexp.MustCompile(`^AIza[A-Za-z0-9_-]{35}$`)
	// Moonshot keys share the legacy OpenAI shape. Intentional: the two
	// providers issue format-identical keys, so the patterns must not drift
	// apart.
	moonshotPattern = regexp.MustCompile(`^sk-[A-Za-z0-9]{32,}$`)
	telegramPattern = regexp.MustCompile(`^[0-9]{8,10}:[A-Za-z0-9_-]{35}$`)
)

// Validate reports whether value matches the format for the given kind.
// Pure function: never errors, never mutates state. Unknown kinds reject.
func Validate(kind Kind, value string) bool {
	switch kind {
	case KindAnthropic:
		return anthropicPattern.MatchString(value)
	case KindOpenAI:
		return openaiLegacyPattern.MatchString(value) || openaiProjectPattern.MatchString(value)
	case KindGoogle:
		return googlePattern.MatchString(value)
	case KindMoonshot:
		return moonshotPattern.MatchString(value)
	case KindTelegram:
		return telegramPattern.MatchString(value)
	default:
		return false
	}
}
