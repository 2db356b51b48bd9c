package capsule

import "strings"

// DefaultThemeName is the theme every unknown or empty key resolves to.
const DefaultThemeName = "default"

// Theme is a named visual preset for text items. Themes are static,
// process-wide configuration; only the theme key is persisted.
type Theme struct {
	BackgroundColor string
	Color           string
	FontFamily      string
	FontSize        string
	BackgroundImage string
}

var themes = map[string]Theme{
	"wedding": {
		BackgroundColor: "#fdf6f0",
		Color:           "#5b4a43",
		FontFamily:      "Georgia, serif",
		FontSize:        "28px",
		BackgroundImage: "linear-gradient(180deg, #fdf6f0, #f3e3d3)",
	},
	"birthday": {
		BackgroundColor: "#fff8e1",
		Color:           "#4a3728",
		FontFamily:      "'Comic Sans MS', cursive",
		FontSize:        "30px",
		BackgroundImage: "linear-gradient(135deg, #fff8e1, #ffe0b2)",
	},
	"vacation": {
		BackgroundColor: "#e0f7fa",
		Color:           "#01579b",
		FontFamily:      "Verdana, sans-serif",
		FontSize:        "26px",
		BackgroundImage: "linear-gradient(180deg, #e0f7fa, #b2ebf2)",
	},
	"graduation": {
		BackgroundColor: "#ede7f6",
		Color:           "#311b92",
		FontFamily:      "'Times New Roman', serif",
		FontSize:        "28px",
	},
	"anniversary": {
		BackgroundColor: "#fce4ec",
		Color:           "#880e4f",
		FontFamily:      "Georgia, serif",
		FontSize:        "28px",
	},
	DefaultThemeName: {
		BackgroundColor: "#ffffff",
		Color:           "#212121",
		FontFamily:      "Arial, sans-serif",
		FontSize:        "24px",
	},
}

// ThemeNames returns the known theme keys in stable order.
func ThemeNames() []string {
	return []string{"wedding", "birthday", "vacation", "graduation", "anniversary", DefaultThemeName}
}

// ThemeByName looks up a theme by key. Unknown or empty keys resolve to the
// default theme; the second return reports whether the key was known.
func ThemeByName(name string) (Theme, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if theme, ok := themes[key]; ok {
		return theme, true
	}
	return themes[DefaultThemeName], false
}

// ResolvedStyle is the effective visual style of one text item after
// layering item-level overrides over its named theme over the default theme.
type ResolvedStyle struct {
	BackgroundColor string
	BackgroundImage string
	FontFamily      string
	FontSize        string
	Color           string
}

// ResolveStyle computes the effective style for an item. Precedence is
// item override > named theme > default theme. The function is total:
// unknown theme keys fall back to the default theme silently.
func ResolveStyle(item ContentItem) ResolvedStyle {
	base := themes[DefaultThemeName]
	named, _ := ThemeByName(item.Style)

	style := ResolvedStyle{
		BackgroundColor: firstNonEmpty(named.BackgroundColor, base.BackgroundColor),
		BackgroundImage: firstNonEmpty(named.BackgroundImage, base.BackgroundImage),
		FontFamily:      firstNonEmpty(item.FontFamily, named.FontFamily, base.FontFamily),
		FontSize:        firstNonEmpty(item.FontSize, named.FontSize, base.FontSize),
		Color:           firstNonEmpty(item.FontColor, named.Color, base.Color),
	}
	return style
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
