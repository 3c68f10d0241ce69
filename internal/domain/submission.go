package domain

import "time"

// Category enumerates the fixed set of feedback categories.
type Category string

const (
	CategoryPatterns  Category = "Лекала"
	CategoryTechCards Category = "Технические карты"
	CategoryMaterials Category = "Что-то заканчивается (материалы, фурнитура и т.п.)"
	CategoryOther     Category = "Другое"
)

// Categories lists all valid categories in presentation order.
func Categories() []Category {
	return []Category{CategoryPatterns, CategoryTechCards, CategoryMaterials, CategoryOther}
}

// ParseCategory exact-matches a label against the fixed set.
func ParseCategory(label string) (Category, bool) {
	for _, c := range Categories() {
		if string(c) == label {
			return c, true
		}
	}
	return "", false
}

// PhotoRef is a lightweight pointer to a not-yet-uploaded attachment. No bytes
// move until finalize; the conversation only carries metadata.
type PhotoRef struct {
	FileID    string
	Width     int
	Height    int
	ByteSize  int64
	SourceURL string
}

// Submission is the immutable record persisted once per successful save.
type Submission struct {
	ID            int64
	ExternalKey   string
	RosterEntryID int64
	Category      Category
	MasterName    string
	Comment       string
	PhotoURLs     []string
	CreatedAt     time.Time
}
