package core

import "strings"

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Summary renders every field, filled or not, one per line in Fields order
// as "*<Field>* - <value>", with monetary fields formatted by c. Values are
// escaped for Markdown. The result starts and ends with a newline so it can
// be embedded in a sentence.
func (d Draft) Summary(c Currency) string {
	lines := make([]string, 0, len(Fields))
	for _, f := range Fields {
		value := d.Value(f)
		switch f {
		case FieldOutflow:
			value = c.Format(d.Outflow)
		case FieldInflow:
			value = c.Format(d.Inflow)
		}
		lines = append(lines, "*"+string(f)+"* - "+markdownEscaper.Replace(value))
	}
	return "\n" + strings.Join(lines, "\n") + "\n"
}
