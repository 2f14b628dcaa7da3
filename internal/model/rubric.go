package model

// Category is one rubric dimension being judged
type Category struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ResponseOption is one selectable answer for every category
type ResponseOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Rubric is the fixed, ordered set of categories and options of a survey variant
type Rubric struct {
	Categories []Category       `json:"categories"`
	Options    []ResponseOption `json:"options"`
}

// Category returns the category with the given id
func (r Rubric) Category(id string) (Category, bool) {
	for _, c := range r.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// HasOption reports whether id is one of the rubric's response options
func (r Rubric) HasOption(id string) bool {
	for _, o := range r.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Validate returns, in rubric order, the ids of the categories without a
// valid response. An option id the rubric does not declare counts as no response.
func (r Rubric) Validate(responses map[string]string) []string {
	var missing []string
	for _, c := range r.Categories {
		if !r.HasOption(responses[c.ID]) {
			missing = append(missing, c.ID)
		}
	}
	return missing
}

// Collect copies exactly one response per declared category.
// Callers must check Validate first.
func (r Rubric) Collect(responses map[string]string) map[string]string {
	out := make(map[string]string, len(r.Categories))
	for _, c := range r.Categories {
		out[c.ID] = responses[c.ID]
	}
	return out
}
