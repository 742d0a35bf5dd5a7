package domain

import "strings"

type Color struct {
	ID   string
	Name string
}

// ColorIndex maps color ids to display names and back. Name lookups ignore case
// and surrounding whitespace.
type ColorIndex struct {
	names map[string]string
	ids   map[string]string
}

func NewColorIndex(colors []Color) *ColorIndex {
	idx := &ColorIndex{
		names: make(map[string]string, len(colors)),
		ids:   make(map[string]string, len(colors)),
	}
	for _, c := range colors {
		if c.ID == "" {
			continue
		}
		idx.names[c.ID] = c.Name
		if key := normalizeColorName(c.Name); key != "" {
			idx.ids[key] = c.ID
		}
	}
	return idx
}

func (x *ColorIndex) Name(id string) (string, bool) {
	if x == nil {
		return "", false
	}
	name, ok := x.names[id]
	return name, ok
}

func (x *ColorIndex) ID(name string) (string, bool) {
	if x == nil {
		return "", false
	}
	id, ok := x.ids[normalizeColorName(name)]
	return id, ok
}

func (x *ColorIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.names)
}

func normalizeColorName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
