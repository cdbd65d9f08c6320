package moderation

import "strings"

// Canonical reason codes selectable in the wizard. ReasonCustom is a sentinel
// that carries no sentence of its own; it unlocks the free-text field.
const (
	ReasonSpam        = "SPAM"
	ReasonHarassment  = "HARASSMENT"
	ReasonNSFW        = "NSFW"
	ReasonAdvertising = "ADVERTISING"
	ReasonRaid        = "RAID"
	ReasonTOS         = "TOS"
	ReasonCustom      = "CUSTOM"
)

// ReasonCodes lists every selectable code, in menu order.
var ReasonCodes = []string{
	ReasonSpam,
	ReasonHarassment,
	ReasonNSFW,
	ReasonAdvertising,
	ReasonRaid,
	ReasonTOS,
	ReasonCustom,
}

type reasonLocale struct {
	sentences   map[string]string
	listSep     string
	conjunction string
	period      string
	fallback    string
}

var reasonLocales = map[string]reasonLocale{
	"en": {
		sentences: map[string]string{
			ReasonSpam:        "Spamming or flooding channels",
			ReasonHarassment:  "Harassing or abusing other members",
			ReasonNSFW:        "Posting NSFW content outside designated channels",
			ReasonAdvertising: "Unsolicited advertising",
			ReasonRaid:        "Participating in a raid",
			ReasonTOS:         "Violating the platform terms of service",
		},
		listSep:     ", ",
		conjunction: " and ",
		period:      ".",
		fallback:    "Reason provided by the moderator.",
	},
	"zh-CN": {
		sentences: map[string]string{
			ReasonSpam:        "刷屏或滥发消息",
			ReasonHarassment:  "骚扰或辱骂其他成员",
			ReasonNSFW:        "在非指定频道发布 NSFW 内容",
			ReasonAdvertising: "未经许可发布广告",
			ReasonRaid:        "参与恶意入侵",
			ReasonTOS:         "违反平台服务条款",
		},
		listSep:     "、",
		conjunction: "以及",
		period:      "。",
		fallback:    "由管理员提供的处罚原因。",
	},
}

func localeFor(tag string) reasonLocale {
	if l, ok := reasonLocales[tag]; ok {
		return l
	}
	return reasonLocales["en"]
}

// ReasonLabel returns the localized sentence for a single code, for menus and
// embeds. Unknown codes come back as-is.
func ReasonLabel(code, localeTag string) string {
	if s, ok := localeFor(localeTag).sentences[code]; ok {
		return s
	}
	return code
}

// ComposeReason turns the selected reason codes and optional custom text into
// the final prose written to the case. It is total: unknown codes are skipped,
// and an empty selection falls back to a generic label rather than an empty
// string. Output depends only on the inputs.
func ComposeReason(codes []string, custom, localeTag string) string {
	l := localeFor(localeTag)

	var parts []string
	seen := make(map[string]bool)
	for _, code := range codes {
		if code == ReasonCustom || seen[code] {
			continue
		}
		if s, ok := l.sentences[code]; ok {
			seen[code] = true
			parts = append(parts, s)
		}
	}

	var b strings.Builder
	switch len(parts) {
	case 0:
	case 1:
		b.WriteString(parts[0])
		b.WriteString(l.period)
	default:
		b.WriteString(strings.Join(parts[:len(parts)-1], l.listSep))
		b.WriteString(l.conjunction)
		b.WriteString(parts[len(parts)-1])
		b.WriteString(l.period)
	}

	custom = strings.TrimSpace(custom)
	if custom != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(custom)
		if !strings.HasSuffix(custom, ".") && !strings.HasSuffix(custom, "。") {
			b.WriteString(l.period)
		}
	}

	if b.Len() == 0 {
		return l.fallback
	}
	return b.String()
}
