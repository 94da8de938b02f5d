package models

// Difficulty is the catalog difficulty label
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Rank orders difficulties Easy=1, Medium=2, Hard=3. Unknown labels rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	default:
		return 0
	}
}

// CatalogItem represents a single practice question from the catalog
type CatalogItem struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Category   string     `json:"category" yaml:"category"`
	Tags       []string   `json:"tags,omitempty" yaml:"tags"`
	Slug       string     `json:"slug,omitempty" yaml:"slug"`
	URL        string     `json:"url,omitempty" yaml:"url"`
}
