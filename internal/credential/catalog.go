// Package credential defines the closed set of credentials managed by keyops
// and the format validators that gate rotation input.
package credential

// Kind identifies a credential format. The set is closed: adding a provider
// means adding a Kind, a validator, and a catalog entry here.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	KindGoogle    Kind = "google"
	KindMoonshot  Kind = "moonshot"
	KindTelegram  Kind = "telegram"
)

// Credential describes one managed secret. Values are never stored here;
// this is catalog metadata only.
type Credential struct {
	// Name is the unique identifier, also the secret file's basename.
	Name string

	// Kind selects the format validator.
	Kind Kind

	// Service is the human-readable provider label shown in prompts and status.
	Service string

	// Format is a short format hint persisted to the ledger and shown to the
	// operator when input is rejected.
	Format string

	// ConsoleURL is where the operator obtains a new value. Informational only.
	ConsoleURL string
}

// catalog is ordered the way "rotate all" walks credentials. The order is
// for operator readability, not correctness.
var catalog = []Credential{
	{
		Name:       "anthropic_api_key",
		Kind:       KindAnthropic,
		Service:    "Anthropic Claude",
		Format:     "sk-ant-...",
		ConsoleURL: "https://console.anthropic.com/settings/keys",
	},
	{
		Name:       "openai_api_key",
		Kind:       KindOpenAI,
		Service:    "OpenAI",
		Format:     "sk-... or sk-proj-...",
		ConsoleURL: "https://platform.openai.com/api-keys",
	},
	{
		Name:       "google_api_key",
		Kind:       KindGoogle,
		Service:    "Google AI Studio",
		Format:     "AIza...",
		ConsoleURL: "https://aistudio.google.com/apikey",
	},
	{
		Name:       "moonshot_api_key",
		Kind:       KindMoonshot,
		Service:    "Moonshot AI",
		Format:     "sk-...",
		ConsoleURL: "https://platform.moonshot.cn/console/api-keys",
	},
	{
		Name:       "telegram_bot_token",
		Kind:       KindTelegram,
		Service:    "Telegram Bot API",
		Format:     "<bot id>:<token>",
		ConsoleURL: "https://t.me/BotFather",
	},
}

// Catalog returns all managed credentials in rotation order.
func Catalog() []Credential {
	out := make([]Credential, len(catalog))
	copy(out, catalog)
	return out
}

// ByName looks up a credential by its unique name.
func ByName(name string) (Credential, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return Credential{}, false
}

// Names returns the catalog's credential names in rotation order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, c := range catalog {
		names = append(names, c.Name)
	}
	return names
}
