package domain

const (
	// MaxLabelLength is the number of runes kept in a node label before truncation.
	MaxLabelLength = 50

	// LabelEllipsis marks a truncated label.
	LabelEllipsis = "..."

	// PaletteSize is the number of colors cycled by GroupIndex.
	PaletteSize = 5

	// DefaultConfidence is used when a step does not carry a confidence.
	DefaultConfidence = 1.0

	// RootLabelPrefix prefixes the label of the input node created for a query.
	RootLabelPrefix = "Query: "
)
