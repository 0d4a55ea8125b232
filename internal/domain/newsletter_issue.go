package domain

import "strings"

// NewsletterIssueContent is the operator-supplied body of an issue.
type NewsletterIssueContent struct {
	Title       string
	TextContent string
	HTMLContent string
}

// Validate requires a title and both renderings of the body.
func (c NewsletterIssueContent) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return invalid("title", "empty")
	}
	if strings.TrimSpace(c.TextContent) == "" {
		return invalid("text_content", "empty")
	}
	if strings.TrimSpace(c.HTMLContent) == "" {
		return invalid("html_content", "empty")
	}
	return nil
}
