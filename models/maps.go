package models

// Color is the congestion color assigned by a classification map.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Valid reports whether c is a known color.
func (c Color) Valid() bool {
	switch c {
	case ColorGreen, ColorYellow, ColorRed:
		return true
	}
	return false
}

// Keys of the HWDefaults map saved on every CoS/DSCP map row, recording the
// factory values so an operator can restore them later.
const (
	HWDefaultCodePointKey         = "default_code_point"
	HWDefaultLocalPriorityKey     = "default_local_priority"
	HWDefaultPriorityCodePointKey = "default_priority_code_point"
	HWDefaultColorKey             = "default_color"
	HWDefaultDescriptionKey       = "default_description"
)

// CosMapEntry maps an 802.1p code point to a local priority and color.
type CosMapEntry struct {
	Header

	// CodePoint is the 802.1p priority code point (0-7)
	CodePoint int `json:"code_point" validate:"min=0,max=7"`

	// LocalPriority is the switch-internal priority (0-7)
	LocalPriority int `json:"local_priority" validate:"min=0,max=7"`

	// Color is green, yellow or red
	Color Color `json:"color" validate:"required,oneof=green yellow red"`

	// Description is the traffic class name, may be empty
	Description string `json:"description"`

	// HWDefaults holds the factory values of this row
	HWDefaults map[string]string `json:"hw_defaults,omitempty"`
}

// DscpMapEntry maps a DSCP code point to a local priority, a priority code
// point and a color.
type DscpMapEntry struct {
	Header

	// CodePoint is the DSCP code point (0-63)
	CodePoint int `json:"code_point" validate:"min=0,max=63"`

	// LocalPriority is the switch-internal priority (0-7)
	LocalPriority int `json:"local_priority" validate:"min=0,max=7"`

	// PriorityCodePoint is the 802.1p code point used on egress
	PriorityCodePoint *int `json:"priority_code_point,omitempty" validate:"omitempty,min=0,max=7"`

	// Color is green, yellow or red
	Color Color `json:"color" validate:"required,oneof=green yellow red"`

	// Description is the DSCP class name (CS0, AF11, EF, ...), may be empty
	Description string `json:"description"`

	// HWDefaults holds the factory values of this row
	HWDefaults map[string]string `json:"hw_defaults,omitempty"`
}
