package inventory

import (
	"sort"
	"strings"
)

// Difference is one field that differs between two devices of the same name.
type Difference struct {
	Device string
	Field  string
	First  string
	Second string
}

// Comparison is the result of comparing two inventories.
type Comparison struct {
	OnlyFirst   []string
	OnlySecond  []string
	Differences []Difference
}

// Equal reports whether the inventories describe the same devices.
func (c *Comparison) Equal() bool {
	return len(c.OnlyFirst) == 0 && len(c.OnlySecond) == 0 && len(c.Differences) == 0
}

// Compare matches devices by name, lower-cased when lower is set.
func Compare(first, second []*Device, lower bool) *Comparison {
	index := func(devices []*Device) map[string]*Device {
		out := make(map[string]*Device, len(devices))
		for _, d := range devices {
			name := d.Name
			if lower {
				name = strings.ToLower(name)
			}

			out[name] = d
		}

		return out
	}

	a, b := index(first), index(second)
	c := &Comparison{}

	for name, da := range a {
		db, ok := b[name]
		if !ok {
			c.OnlyFirst = append(c.OnlyFirst, name)
			continue
		}

		c.Differences = append(c.Differences, diff(name, da, db)...)
	}

	for name := range b {
		if _, ok := a[name]; !ok {
			c.OnlySecond = append(c.OnlySecond, name)
		}
	}

	sort.Strings(c.OnlyFirst)
	sort.Strings(c.OnlySecond)
	sort.Slice(c.Differences, func(i, j int) bool {
		if c.Differences[i].Device != c.Differences[j].Device {
			return c.Differences[i].Device < c.Differences[j].Device
		}

		return c.Differences[i].Field < c.Differences[j].Field
	})

	return c
}

func fields(d *Device) map[string]string {
	out := map[string]string{
		"type":           d.Type,
		"module":         d.Module,
		"device":         d.TangoDevice,
		"control":        d.Control,
		"hostname":       d.Hostname,
		"controller":     d.Controller,
		"channel":        d.Channel,
		"rootdevicename": d.RootDeviceName,
	}

	for k, v := range d.Extra {
		out[k] = v
	}

	return out
}

func diff(name string, a, b *Device) []Difference {
	fa, fb := fields(a), fields(b)
	out := []Difference{}

	for k, va := range fa {
		if vb := fb[k]; va != vb {
			out = append(out, Difference{Device: name, Field: k, First: va, Second: vb})
		}
	}

	for k, vb := range fb {
		if _, ok := fa[k]; !ok && vb != "" {
			out = append(out, Difference{Device: name, Field: k, Second: vb})
		}
	}

	return out
}
