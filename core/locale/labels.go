package locale

import "strings"

// Labels are the fixed UI strings of a search table.
type Labels struct {
	Search      string `json:"search"`
	Reset       string `json:"reset"`
	Expand      string `json:"expand"`
	Collapse    string `json:"collapse"`
	NoSelection string `json:"noSelection"`
	Selected    string `json:"selected"`
	ConfigError string `json:"configError"`
}

// ForLocale returns the built-in labels for a locale, English when the
// language is unknown.
func ForLocale(locale string) Labels {
	switch base(locale) {
	case "zh":
		return Labels{
			Search:      "查询",
			Reset:       "重置",
			Expand:      "展开",
			Collapse:    "收起",
			NoSelection: "未选择任何行",
			Selected:    "已选择",
			ConfigError: "配置错误",
		}
	case "de":
		return Labels{
			Search:      "Suchen",
			Reset:       "Zurücksetzen",
			Expand:      "Mehr",
			Collapse:    "Weniger",
			NoSelection: "keine Zeilen ausgewählt",
			Selected:    "ausgewählt",
			ConfigError: "Konfigurationsfehler",
		}
	default:
		return Labels{
			Search:      "Search",
			Reset:       "Reset",
			Expand:      "More",
			Collapse:    "Less",
			NoSelection: "no rows selected",
			Selected:    "selected",
			ConfigError: "configuration error",
		}
	}
}

// base returns the language part of a tag such as "zh-CN" or "de_CH".
func base(locale string) string {
	locale = strings.ToLower(locale)
	if i := strings.IndexAny(locale, "-_"); i >= 0 {
		return locale[:i]
	}
	return locale
}
