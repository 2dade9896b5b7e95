package application

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy

	// markdownEscaper neutralizes characters in client-authored subjects that
	// would otherwise open emphasis, links or inline HTML.
	markdownEscaper = strings.NewReplacer(
		`\`, `\\`,
		"`", "\\`",
		`*`, `\*`,
		`_`, `\_`,
		`[`, `\[`,
		`]`, `\]`,
		`<`, `\<`,
		`>`, `\>`,
		`!`, `\!`,
		`|`, `\|`,
		`~`, `\~`,
	)
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// ReminderMarkdown builds the Markdown source of a reminder: a heading line
// followed by one numbered entry per item.
//
//	🚨 Unread client messages/comments older than 7 days:
//
//	1. **[Message]** [Subject](https://3.basecamp.com/...)
func ReminderMarkdown(items []model.ContentItem, staleAfter time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Unread client messages/comments older than %s:\n\n", formatWindow(staleAfter))

	for i, item := range items {
		subject := strings.TrimSpace(item.Subject)
		if subject == "" {
			subject = "(no subject)"
		}
		subject = markdownEscaper.Replace(strings.Join(strings.Fields(subject), " "))

		fmt.Fprintf(&b, "%d. **[%s]** ", i+1, item.Type)
		if link := safeLink(item.AppURL); link != "" {
			fmt.Fprintf(&b, "[%s](<%s>)\n", subject, link)
		} else {
			fmt.Fprintf(&b, "%s\n", subject)
		}
	}

	return b.String()
}

// RenderReminder converts a reminder to the sanitized HTML posted as a
// Basecamp rich-text comment.
func RenderReminder(items []model.ContentItem, staleAfter time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(ReminderMarkdown(items, staleAfter)), &buf); err != nil {
		return "", fmt.Errorf("rendering reminder: %w", err)
	}
	return strings.TrimSpace(htmlSanitizer.Sanitize(buf.String())), nil
}

// safeLink returns u when it is an absolute http(s) URL that can sit inside
// a Markdown link destination, or empty string otherwise.
func safeLink(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	s := parsed.String()
	if strings.ContainsAny(s, "<>\n") {
		return ""
	}
	return s
}

// formatWindow renders a staleness window for humans: whole days when it
// divides evenly, the raw duration otherwise.
func formatWindow(d time.Duration) string {
	const day = 24 * time.Hour
	if d >= day && d%day == 0 {
		days := int(d / day)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}
