package i18n

// Translator is a per-language label lookup. A miss at either level (unknown
// language or unknown key) falls back to the key itself, so untranslated
// labels render as-is.
type Translator struct {
	table map[string]map[string]string
}

func New(table map[string]map[string]string) *Translator {
	if table == nil {
		table = map[string]map[string]string{}
	}
	return &Translator{table: table}
}

func (t *Translator) T(lang, key string) string {
	if m, ok := t.table[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Languages lists the languages the table carries; the caller decides the
// default.
func (t *Translator) Languages() []string {
	out := make([]string, 0, len(t.table))
	for l := range t.table {
		out = append(out, l)
	}
	return out
}

// Table returns the raw mapping for one language, empty if unknown.
func (t *Translator) Table(lang string) map[string]string {
	if m, ok := t.table[lang]; ok {
		return m
	}
	return map[string]string{}
}
