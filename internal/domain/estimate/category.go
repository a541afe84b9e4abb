package estimate

// Category is a coarse wait band for display.
type Category string

const (
	CategoryLow      Category = "Low"
	CategoryModerate Category = "Moderate"
	CategoryHigh     Category = "High"
)

// CategoryFor bands a wait in seconds: under 2 minutes is Low, under 10 is Moderate.
func CategoryFor(seconds float64) Category {
	switch {
	case seconds < 120:
		return CategoryLow
	case seconds < 600:
		return CategoryModerate
	default:
		return CategoryHigh
	}
}
