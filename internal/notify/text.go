package notify

import "fmt"

// Text holds the user-facing strings for one language.
type Text struct {
	TestTitle          string
	TestBody           string
	BudgetTitle        string
	BudgetFallbackBody string
	budgetBody         string
	ReminderTitle      string
	ReminderBody       string
}

var texts = map[string]Text{
	"id": {
		TestTitle:          "Notifikasi Tes",
		TestBody:           "Notifikasi ini dikirim dari agen notifikasi.",
		BudgetTitle:        "Peringatan Budget",
		BudgetFallbackBody: "Anda hampir mencapai batas budget bulanan Anda!",
		budgetBody:         "Pengeluaran Anda telah mencapai %d%% dari budget bulan ini!",
		ReminderTitle:      "Jangan Lupa!",
		ReminderBody:       "Catat pengeluaran dan pemasukan Anda hari ini.",
	},
	"en": {
		TestTitle:          "Test Notification",
		TestBody:           "If you can see this, notifications are working!",
		BudgetTitle:        "Budget Alert",
		BudgetFallbackBody: "You are close to your monthly budget limit!",
		budgetBody:         "Your spending has reached %d%% of this month's budget!",
		ReminderTitle:      "Don't Forget!",
		ReminderBody:       "Record today's income and expenses.",
	},
}

// TextFor returns the strings for language, falling back to Indonesian.
func TextFor(language string) Text {
	if t, ok := texts[language]; ok {
		return t
	}
	return texts["id"]
}

// BudgetBody formats the alert body for the given share of the limit used.
func (t Text) BudgetBody(percent int) string {
	return fmt.Sprintf(t.budgetBody, percent)
}
