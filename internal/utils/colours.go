package utils

// Palette holds the Catppuccin Mocha colours the views draw with.
type Palette struct {
	Accent    string
	Highlight string
	Success   string
	Warning   string
	Error     string
	Info      string
	Text      string
	Muted     string
	Faint     string
	Border    string
	Surface   string
	Base      string
}

var Colours = Palette{
	Accent:    "#cba6f7", // mauve
	Highlight: "#b4befe", // lavender
	Success:   "#a6e3a1", // green
	Warning:   "#f9e2af", // yellow
	Error:     "#f38ba8", // red
	Info:      "#89dceb", // sky
	Text:      "#cdd6f4",
	Muted:     "#a6adc8", // subtext0
	Faint:     "#6c7086", // overlay0
	Border:    "#585b70", // surface2
	Surface:   "#313244", // surface0
	Base:      "#1e1e2e",
}
