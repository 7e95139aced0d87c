package schema

import "slices"

// Translator resolves a title for a locale. Implementations return the key
// itself when they have no translation.
type Translator interface {
	Translate(locale, key string) string
}

// Localize returns a copy of l with every title translated. Partitioning,
// order and all other attributes are unchanged.
func Localize(l Layout, tr Translator, locale string) Layout {
	if tr == nil {
		return l
	}

	out := Layout{
		Search: Search{
			Primary: slices.Clone(l.Search.Primary),
			More:    slices.Clone(l.Search.More),
		},
		Table:  Table{Fields: slices.Clone(l.Table.Fields)},
		Dialog: Dialog{Fields: slices.Clone(l.Dialog.Fields)},
	}

	for i := range out.Search.Primary {
		out.Search.Primary[i].Title = translate(tr, locale, out.Search.Primary[i].Title)
	}
	for i := range out.Search.More {
		out.Search.More[i].Title = translate(tr, locale, out.Search.More[i].Title)
	}
	for i := range out.Table.Fields {
		out.Table.Fields[i].Title = translate(tr, locale, out.Table.Fields[i].Title)
	}
	for i := range out.Dialog.Fields {
		out.Dialog.Fields[i].Title = translate(tr, locale, out.Dialog.Fields[i].Title)
	}

	return out
}

func translate(tr Translator, locale, title string) string {
	if title == "" {
		return title
	}
	return tr.Translate(locale, title)
}
