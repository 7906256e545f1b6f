package console

// SelectOption represents a selectable option with a label and value
type SelectOption struct {
	Label string
	Value string
}

// FormField represents a generic form field configuration
type FormField struct {
	Type        string // "input", "password", "confirm", "select"
	Title       string
	Description string
	Placeholder string
	Value       any                // Pointer to the value to store the result
	Options     []SelectOption     // For select fields
	Validate    func(string) error // For input/password fields
}
