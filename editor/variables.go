package editor

// Variable is one entry of the variable picker tree. Leaves carry a
// {{...}} token in Value; groups carry Children.
type Variable struct {
	Label    string     `json:"label"`
	Value    string     `json:"value"`
	Children []Variable `json:"children,omitempty"`
}

// Variables is the catalog offered by the variable picker.
var Variables = []Variable{
	{
		Label: "Person",
		Value: "person",
		Children: []Variable{
			{
				Label: "Name",
				Value: "name",
				Children: []Variable{
					{Label: "First name", Value: "{{person.name.first}}"},
					{Label: "Last name", Value: "{{person.name.last}}"},
					{Label: "Full name", Value: "{{person.name.full}}"},
				},
			},
			{Label: "Email", Value: "{{person.email}}"},
			{Label: "Company", Value: "{{person.company}}"},
			{Label: "Title", Value: "{{person.title}}"},
		},
	},
	{
		Label: "Company",
		Value: "company",
		Children: []Variable{
			{Label: "Name", Value: "{{company.name}}"},
			{Label: "Domain", Value: "{{company.domain}}"},
			{Label: "Industry", Value: "{{company.industry}}"},
		},
	},
	{
		Label: "Sequence",
		Value: "sequence",
		Children: []Variable{
			{Label: "Name", Value: "{{sequence.name}}"},
			{Label: "Owner name", Value: "{{sequence.owner.name}}"},
		},
	},
}

// VariableTokens flattens Variables into its leaf tokens, depth first.
func VariableTokens() []string {
	var tokens []string
	var walk func([]Variable)
	walk = func(vars []Variable) {
		for _, v := range vars {
			if len(v.Children) > 0 {
				walk(v.Children)
				continue
			}
			tokens = append(tokens, v.Value)
		}
	}
	walk(Variables)
	return tokens
}

// IsKnownVariable reports whether token is a leaf of Variables.
func IsKnownVariable(token string) bool {
	for _, t := range VariableTokens() {
		if t == token {
			return true
		}
	}
	return false
}

// SampleData returns the dictionary used to render previews.
func SampleData() map[string]string {
	return map[string]string{
		"{{person.name.first}}":   "John",
		"{{person.name.last}}":    "Doe",
		"{{person.name.full}}":    "John Doe",
		"{{person.email}}":        "john.doe@example.com",
		"{{person.company}}":      "Acme Corp",
		"{{person.title}}":        "VP of Sales",
		"{{company.name}}":        "Acme Corp",
		"{{company.domain}}":      "acme.com",
		"{{company.industry}}":    "Technology",
		"{{sequence.name}}":       "Product Demo Follow-up",
		"{{sequence.owner.name}}": "Jane Smith",
	}
}

// Preview is an email rendered with sample data.
type Preview struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// RenderPreview substitutes SampleData into subject and content.
func RenderPreview(subject, content string) Preview {
	data := SampleData()
	return Preview{
		Subject: Substitute(subject, data),
		Content: Substitute(content, data),
	}
}

// InsertVariable replaces the rune range [start, end) of content with
// variable and returns the new content and the caret position right after
// the inserted token. Out of range positions are clamped and a reversed
// range collapses to start.
func InsertVariable(content string, start, end int, variable string) (string, int) {
	runes := []rune(content)
	start = clamp(start, 0, len(runes))
	end = clamp(end, start, len(runes))

	out := make([]rune, 0, len(runes)+len(variable))
	out = append(out, runes[:start]...)
	out = append(out, []rune(variable)...)
	out = append(out, runes[end:]...)
	return string(out), start + len([]rune(variable))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
