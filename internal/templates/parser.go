// Package templates turns template posts on the target blog into Templates
// and exclusion sets.
package templates

import (
	"context"
	"fmt"
	"regexp"

	"github.com/qepting91/reblogbot/internal/domain"
)

var (
	templateRegex = regexp.MustCompile(`<h1>(.+?)</h1><p>(.+?)</p>`)
	usernameRegex = regexp.MustCompile(`<p>@(.+?)</p>`)
)

// Parse extracts a Template from the first trail segment of post.
func Parse(post domain.Post) (domain.Template, error) {
	if len(post.Trail) == 0 {
		return domain.Template{}, &domain.ParseError{TemplateID: post.ID, Reason: "post has no trail content"}
	}

	found := templateRegex.FindAllStringSubmatch(post.Trail[0].ContentRaw, -1)
	switch len(found) {
	case 0:
		return domain.Template{}, &domain.ParseError{TemplateID: post.ID, Reason: "title/comment markup not found"}
	case 1:
	default:
		return domain.Template{}, &domain.ParseError{
			TemplateID: post.ID,
			Reason:     fmt.Sprintf("title/comment markup matched %d times", len(found)),
		}
	}

	tags := make([]string, len(post.Tags))
	copy(tags, post.Tags)

	return domain.Template{
		Title:   found[0][1],
		Comment: found[0][2],
		Tags:    tags,
	}, nil
}

// Fetch loads template post id from blog and parses it. The platform must
// return exactly one post; anything else is a ParseError.
func Fetch(ctx context.Context, p domain.Platform, blog, id string) (domain.Template, error) {
	posts, err := p.Posts(ctx, blog, domain.PostsQuery{ID: id})
	if err != nil {
		return domain.Template{}, fmt.Errorf("fetch template %s: %w", id, err)
	}

	switch len(posts) {
	case 0:
		return domain.Template{}, &domain.ParseError{TemplateID: id, Reason: "post not found"}
	case 1:
	default:
		return domain.Template{}, &domain.ParseError{
			TemplateID: id,
			Reason:     fmt.Sprintf("expected one post, got %d", len(posts)),
		}
	}

	post := posts[0]
	if post.ID == "" {
		post.ID = id
	}
	return Parse(post)
}

// ExtractUsernames returns every @handle that sits alone in a paragraph, in
// order of appearance. Duplicates are kept.
func ExtractUsernames(html string) []string {
	found := usernameRegex.FindAllStringSubmatch(html, -1)
	names := make([]string, 0, len(found))
	for _, m := range found {
		names = append(names, m[1])
	}
	return names
}

// Exclusions derives the do-not-interact set from the DNI template. A nil
// template yields an empty set.
func Exclusions(dni *domain.Template) domain.ExclusionSet {
	if dni == nil {
		return domain.NewExclusionSet(nil, nil)
	}
	return domain.NewExclusionSet(ExtractUsernames(dni.Comment), dni.Tags)
}
