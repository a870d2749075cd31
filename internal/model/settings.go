package model

// Language is the UI language code.
type Language string

const (
	LanguageIndonesian Language = "id"
	LanguageEnglish    Language = "en"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageIndonesian || l == LanguageEnglish
}

// AppSettings are user preferences persisted independently of the ledger.
type AppSettings struct {
	Language      Language `json:"language"`
	SavingsTarget int64    `json:"savingsTarget"`
	IsDarkMode    bool     `json:"isDarkMode"`
}

// DefaultSettings returns the settings used when nothing has been saved.
func DefaultSettings() AppSettings {
	return AppSettings{
		SavingsTarget: 5_000_000,
		IsDarkMode:    false,
		Language:      LanguageIndonesian,
	}
}
