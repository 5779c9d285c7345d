package image

import "strings"

// ParseTags 按逗号拆分，去除空白与空项，保留首次出现的顺序去重
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
