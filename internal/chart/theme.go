package chart

import (
	"gridpulse/pkg/contracts/domain"
)

// Axis names used when a chart has two value axes.
const (
	LeftAxisName     = "负荷/发电量"
	RightAxisName    = "价格"
	DualAxisSubtitle = "左侧Y轴：负荷/发电量 | 右侧Y轴：价格"
)

// ThemeStyle carries the colours a renderer needs for a theme
type ThemeStyle struct {
	Text       string `json:"text"`
	SubText    string `json:"sub_text"`
	AxisLine   string `json:"axis_line"`
	SplitLine  string `json:"split_line"`
	Background string `json:"background"`
}

var themeStyles = map[domain.Theme]ThemeStyle{
	domain.ThemeLight: {Text: "#333", SubText: "#666", AxisLine: "#ccc", SplitLine: "#eee", Background: "#fff"},
	domain.ThemeDark:  {Text: "#fff", SubText: "#ccc", AxisLine: "#444", SplitLine: "#333", Background: "#1f1f1f"},
}

// Style returns the colours for theme, defaulting to light.
func Style(theme domain.Theme) ThemeStyle {
	if s, ok := themeStyles[theme]; ok {
		return s
	}
	return themeStyles[domain.ThemeLight]
}

// ParseTheme accepts "light", "dark" or "" (light).
func ParseTheme(s string) (domain.Theme, bool) {
	switch domain.Theme(s) {
	case "", domain.ThemeLight:
		return domain.ThemeLight, true
	case domain.ThemeDark:
		return domain.ThemeDark, true
	}
	return "", false
}

// Subtitle explains the axis split of a dual-axis chart, and is empty otherwise.
func Subtitle(model domain.ChartModel) string {
	if model.DualAxis {
		return DualAxisSubtitle
	}
	return ""
}
