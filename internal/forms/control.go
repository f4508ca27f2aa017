// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package forms describes entity edit forms as data so the admin client
// can render them without hard-coding fields.
package forms

import "sort"

// Control types understood by the client renderer.
const (
	ControlTextbox     = "textbox"
	ControlTextarea    = "textarea"
	ControlDropdown    = "dropdown"
	ControlMultiSelect = "multiselect"
	ControlChips       = "chips"
	ControlCheckbox    = "checkbox"
	ControlImage       = "image"
)

// Option is one selectable choice of a dropdown, multiselect or chips control.
type Option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Control describes a single form field.
type Control struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	ControlType string   `json:"control_type"`
	Type        string   `json:"type,omitempty"` // text, email, password, number, datetime-local
	Value       any      `json:"value,omitempty"`
	Required    bool     `json:"required"`
	MinLength   int      `json:"min_length,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Order       int      `json:"order"`
	Options     []Option `json:"options,omitempty"`
}

// Textbox returns a single-line input. Type defaults to "text".
func Textbox(c Control) Control {
	c.ControlType = ControlTextbox
	if c.Type == "" {
		c.Type = "text"
	}
	return c
}

// Textarea returns a multi-line input.
func Textarea(c Control) Control {
	c.ControlType = ControlTextarea
	return c
}

// Dropdown returns a single-choice select.
func Dropdown(c Control) Control {
	c.ControlType = ControlDropdown
	return c
}

// MultiSelect returns a multiple-choice select.
func MultiSelect(c Control) Control {
	c.ControlType = ControlMultiSelect
	return c
}

// Chips returns a chip selector backed by autocomplete.
func Chips(c Control) Control {
	c.ControlType = ControlChips
	return c
}

// Checkbox returns a boolean toggle.
func Checkbox(c Control) Control {
	c.ControlType = ControlCheckbox
	return c
}

// Image returns an image picker that opens the cropper and stores the
// resulting media URL.
func Image(c Control) Control {
	c.ControlType = ControlImage
	return c
}

// Form is the full descriptor for one entity.
type Form struct {
	Entity   string    `json:"entity"`
	Controls []Control `json:"controls"`
}

// New builds a form with controls sorted by Order. Controls with equal
// Order keep their declaration order.
func New(entity string, controls ...Control) *Form {
	sorted := make([]Control, len(controls))
	copy(sorted, controls)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	return &Form{Entity: entity, Controls: sorted}
}

// Control returns the control with the given key, or nil.
func (f *Form) Control(key string) *Control {
	for i := range f.Controls {
		if f.Controls[i].Key == key {
			return &f.Controls[i]
		}
	}
	return nil
}
