package formatter

import (
	"strings"
	"text/template"
	"time"
)

// StandardFuncs is the function map available to notification templates.
var StandardFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.DateOnly)
	},
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(time.TimeOnly)
	},
	"default": func(def, v string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	},
	"humanize": humanize,
}

func humanize(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}
