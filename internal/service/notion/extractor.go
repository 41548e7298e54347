package notion

import (
	"strings"

	"github.com/leadloom/leadloom/pkg/util"
)

func extractTitle(properties map[string]any) string {
	for _, prop := range properties {
		propMap, ok := prop.(map[string]any)
		if !ok || propMap["type"] != "title" {
			continue
		}
		if text := joinPlainText(propMap["title"]); text != "" {
			return text
		}
	}
	return ""
}

func extractRichText(properties map[string]any, name string) string {
	propMap, ok := properties[name].(map[string]any)
	if !ok || propMap["type"] != "rich_text" {
		return ""
	}
	return joinPlainText(propMap["rich_text"])
}

func extractSelect(properties map[string]any, name string) string {
	propMap, ok := properties[name].(map[string]any)
	if !ok || propMap["type"] != "select" {
		return ""
	}
	if selected, ok := propMap["select"].(map[string]any); ok {
		if value, ok := selected["name"].(string); ok {
			return value
		}
	}
	return ""
}

// extractMultiSelect also accepts a rich_text property holding a comma
// separated list.
func extractMultiSelect(properties map[string]any, name string) []string {
	propMap, ok := properties[name].(map[string]any)
	if !ok {
		return nil
	}
	if propMap["type"] == "rich_text" {
		return util.ParseTags(joinPlainText(propMap["rich_text"]))
	}
	if propMap["type"] != "multi_select" {
		return nil
	}
	options, ok := propMap["multi_select"].([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, option := range options {
		if optionMap, ok := option.(map[string]any); ok {
			if value, ok := optionMap["name"].(string); ok {
				names = append(names, value)
			}
		}
	}
	return names
}

// blockPlainText returns the text of paragraph, heading, list and quote blocks.
func blockPlainText(block map[string]any) string {
	blockType, ok := block["type"].(string)
	if !ok {
		return ""
	}
	switch blockType {
	case "paragraph", "heading_1", "heading_2", "heading_3",
		"bulleted_list_item", "numbered_list_item", "quote", "callout":
	default:
		return ""
	}
	body, ok := block[blockType].(map[string]any)
	if !ok {
		return ""
	}
	return joinPlainText(body["rich_text"])
}

func joinPlainText(v any) string {
	parts, ok := v.([]any)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, part := range parts {
		if partMap, ok := part.(map[string]any); ok {
			if text, ok := partMap["plain_text"].(string); ok {
				sb.WriteString(text)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
