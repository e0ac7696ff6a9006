package feed

import (
	"fmt"
	"strings"
)

// filterFields maps each filterable field name to its value on an item.
// Config validation accepts exactly these names.
var filterFields = map[string]func(Item) string{
	"title":       func(it Item) string { return it.Title },
	"description": func(it Item) string { return it.Description },
	"content":     func(it Item) string { return it.Content },
	"authors":     func(it Item) string { return strings.Join(it.Authors, " ") },
	"link":        func(it Item) string { return it.Link },
	"categories":  func(it Item) string { return strings.Join(it.Categories, " ") },
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks items that fail the feed's filters. Items are never dropped,
// filtered ones are kept with the reason so they can be reconsidered on a
// config change.
func (f *Filterer) Run(items []Item, feedConfig *Config) []Item {
	result := make([]Item, 0, len(items))
	for _, item := range items {
		item.IsFiltered, item.FilterReason = f.check(item, feedConfig.Filters)
		result = append(result, item)
	}
	return result
}

// check applies filters in order; the first failing one wins. Excludes are
// checked before includes within a filter.
func (f *Filterer) check(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := strings.ToLower(f.fieldValue(item, filter.Field))

		for _, exclude := range filter.Excludes {
			if strings.Contains(value, strings.ToLower(exclude)) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 && !containsAny(value, filter.Includes) {
			return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
		}
	}

	return false, ""
}

func (f *Filterer) fieldValue(item Item, field string) string {
	if value, ok := filterFields[field]; ok {
		return value(item)
	}
	return ""
}

func containsAny(value string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.Contains(value, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}
