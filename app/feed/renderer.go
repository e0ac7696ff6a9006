package feed

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer prepares stored item HTML for API clients. It is safe for
// concurrent use.
type Renderer struct {
	policy    *bluemonday.Policy
	converter *converter.Converter
}

func NewRenderer() *Renderer {
	return &Renderer{
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Sanitize drops scripts, event handlers and other unsafe markup.
func (r *Renderer) Sanitize(html string) string {
	return r.policy.Sanitize(html)
}

// Markdown converts sanitized HTML to Markdown. Relative links are resolved
// against baseURL when it is not empty.
func (r *Renderer) Markdown(html, baseURL string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	md, err := r.converter.ConvertString(r.Sanitize(html), converter.WithDomain(baseURL))
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	return strings.TrimSpace(md), nil
}
