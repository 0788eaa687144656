package models

import "time"

// Category is the closed set of conversation categories a summary may carry.
type Category string

const (
	CategoryPersonal      Category = "personal"
	CategoryEducation     Category = "education"
	CategoryHealth        Category = "health"
	CategoryFinance       Category = "finance"
	CategoryLegal         Category = "legal"
	CategoryPhilosophy    Category = "philosophy"
	CategoryScience       Category = "science"
	CategoryEntrepreneur  Category = "entrepreneurship"
	CategoryParenting     Category = "parenting"
	CategoryRomantic      Category = "romance"
	CategoryTravel        Category = "travel"
	CategoryInspiration   Category = "inspiration"
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategorySocial        Category = "social"
	CategoryWork          Category = "work"
	CategorySports        Category = "sports"
	CategoryPolitics      Category = "politics"
	CategoryLiterature    Category = "literature"
	CategoryOther         Category = "other"
)

var conversationCategories = map[Category]bool{
	CategoryPersonal: true, CategoryEducation: true, CategoryHealth: true,
	CategoryFinance: true, CategoryLegal: true, CategoryPhilosophy: true,
	CategoryScience: true, CategoryEntrepreneur: true, CategoryParenting: true,
	CategoryRomantic: true, CategoryTravel: true, CategoryInspiration: true,
	CategoryTechnology: true, CategoryBusiness: true, CategorySocial: true,
	CategoryWork: true, CategorySports: true, CategoryPolitics: true,
	CategoryLiterature: true, CategoryOther: true,
}

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c Category) bool {
	return conversationCategories[c]
}

// NormalizeCategory maps unknown categories to CategoryOther.
func NormalizeCategory(c Category) Category {
	if ValidCategory(c) {
		return c
	}
	return CategoryOther
}

// ActionItem is one actionable follow-up extracted from a conversation.
type ActionItem struct {
	Description string     `json:"description"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Completed   bool       `json:"completed"`
}

// CalendarEvent is a calendar-like event extracted from a conversation.
type CalendarEvent struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	Duration int       `json:"duration"` // minutes
}

// StructuredSummary is produced exactly once per conversation, either by the
// enrichment agent or by the local fallback generator. Immutable after creation.
type StructuredSummary struct {
	Title       string          `json:"title"`
	Overview    string          `json:"overview"`
	Emoji       string          `json:"emoji"`
	Category    Category        `json:"category"`
	ActionItems []ActionItem    `json:"action_items"`
	Events      []CalendarEvent `json:"events"`
}

// MemoryCategory is the closed set of memory categories.
type MemoryCategory string

const (
	MemoryCategoryCore        MemoryCategory = "core"
	MemoryCategoryHobbies     MemoryCategory = "hobbies"
	MemoryCategoryLifestyle   MemoryCategory = "lifestyle"
	MemoryCategoryInterests   MemoryCategory = "interests"
	MemoryCategoryWork        MemoryCategory = "work"
	MemoryCategorySkills      MemoryCategory = "skills"
	MemoryCategoryLearnings   MemoryCategory = "learnings"
	MemoryCategoryOther       MemoryCategory = "other"
)

var memoryCategories = map[MemoryCategory]bool{
	MemoryCategoryCore: true, MemoryCategoryHobbies: true,
	MemoryCategoryLifestyle: true, MemoryCategoryInterests: true,
	MemoryCategoryWork: true, MemoryCategorySkills: true,
	MemoryCategoryLearnings: true, MemoryCategoryOther: true,
}

// ValidMemoryCategory reports whether c belongs to the closed memory category set.
func ValidMemoryCategory(c MemoryCategory) bool {
	return memoryCategories[c]
}

// Memory visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// Memory is one extracted fact about the user. Zero or more per conversation.
type Memory struct {
	Content    string         `json:"content"`
	Category   MemoryCategory `json:"category"`
	Visibility string         `json:"visibility"`
	Tags       []string       `json:"tags,omitempty"`
}
