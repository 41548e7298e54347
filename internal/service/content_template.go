package service

import (
	"fmt"
	"strings"

	"github.com/leadloom/leadloom/internal/models"
	"github.com/leadloom/leadloom/pkg/util"
)

// DefaultCallToAction closes every templated post.
const DefaultCallToAction = "What is the one change that would make the biggest difference for your team this quarter?"

// maxTitleRunes matches the size of content_items.title.
const maxTitleRunes = 500

// resolveTitle picks the item title: topic, then source name, then a
// persona/industry phrase, then "Untitled".
func resolveTitle(topic string, source *models.ContentSource, persona, industry string) string {
	return util.Truncate(titleCandidate(topic, source, persona, industry), maxTitleRunes)
}

func titleCandidate(topic string, source *models.ContentSource, persona, industry string) string {
	if t := strings.TrimSpace(topic); t != "" {
		return t
	}
	if source != nil && strings.TrimSpace(source.Name) != "" {
		return strings.TrimSpace(source.Name)
	}
	persona = strings.TrimSpace(persona)
	industry = strings.TrimSpace(industry)
	switch {
	case industry != "" && persona != "":
		return fmt.Sprintf("%s insights for %s", industry, persona)
	case industry != "":
		return industry + " insights"
	case persona != "":
		return "Insights for " + persona
	}
	return "Untitled"
}

func buildPromptContext(topic string, source *models.ContentSource, extra, persona, industry, objective string) string {
	var lines []string
	if t := strings.TrimSpace(topic); t != "" {
		lines = append(lines, "Topic: "+t)
	} else if source != nil {
		lines = append(lines, "Source: "+source.Name)
		if s := strings.TrimSpace(source.Summary); s != "" {
			lines = append(lines, "Summary: "+s)
		}
	}
	if e := strings.TrimSpace(extra); e != "" {
		lines = append(lines, e)
	}
	if persona != "" {
		lines = append(lines, "Audience: "+persona)
	}
	if industry != "" {
		lines = append(lines, "Industry: "+industry)
	}
	if objective != "" {
		lines = append(lines, "Objective: "+objective)
	}
	return strings.Join(lines, "\n")
}

// templatePost is the deterministic body used when the AI generator is
// unavailable. The default call to action is always the last line.
func templatePost(title, persona, industry, objective string) string {
	audience := util.FirstNonEmpty(persona, "leaders")
	sector := util.FirstNonEmpty(industry, "your industry")

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Most %s in %s I talk to are solving the same three problems:\n\n", audience, sector)
	fmt.Fprintf(&sb, "• Turning %s data into decisions the whole team trusts\n", sector)
	sb.WriteString("• Freeing senior people from manual reporting\n")
	sb.WriteString("• Proving return on every new initiative within one quarter\n\n")
	if objective != "" {
		fmt.Fprintf(&sb, "Goal of this post: %s.\n\n", strings.ReplaceAll(objective, "_", " "))
	}

	var tags []string
	for _, v := range []string{industry, persona} {
		if tag := util.Hashtag(v); tag != "" {
			tags = append(tags, tag)
		}
	}
	tags = append(tags, "#Leadership")
	sb.WriteString(strings.Join(tags, " "))
	sb.WriteString("\n\n")
	sb.WriteString(DefaultCallToAction)
	return sb.String()
}

// appendCallToAction adds cta after a blank line unless the body already
// contains it verbatim.
func appendCallToAction(body, cta string) string {
	cta = strings.TrimSpace(cta)
	if cta == "" || strings.Contains(body, cta) {
		return body
	}
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return cta
	}
	return body + "\n\n" + cta
}
