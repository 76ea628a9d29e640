package service

import (
	"regexp"
	"strconv"
	"strings"

	"campus-market/internal/domain"
)

var filterCommandRegex = regexp.MustCompile(`^/(page|sort|campus|category|sold)=(.*)$`)

// Command represents a parsed filter command from the interactive search
type Command struct {
	Type  string
	Value string
}

// ParseCommand attempts to parse a line as a filter command.
// Returns the command and true if it's a command, nil and false otherwise
func ParseCommand(content string) (*Command, bool) {
	content = strings.TrimSpace(content)

	if content == "/clear" {
		return &Command{Type: "clear"}, true
	}

	if matches := filterCommandRegex.FindStringSubmatch(content); matches != nil {
		return &Command{
			Type:  matches[1],
			Value: strings.TrimSpace(matches[2]),
		}, true
	}

	return nil, false
}

// ApplyInput folds one line of interactive input into f. Plain text
// replaces the search term. Any change other than /page resets to page 1.
func ApplyInput(f domain.Filters, line string) (domain.Filters, error) {
	cmd, ok := ParseCommand(line)
	if !ok {
		f.Search = strings.TrimSpace(line)
		f.Page = 1
		return f, nil
	}

	switch cmd.Type {
	case "clear":
		return domain.Filters{Page: 1, Sort: domain.SortNewest}, nil
	case "page":
		page, err := strconv.Atoi(cmd.Value)
		if err != nil {
			return f, domain.ErrPageOutOfRange
		}
		f.Page = page
		return f, nil
	case "sort":
		mode, err := domain.ParseSortMode(cmd.Value)
		if err != nil {
			return f, err
		}
		f.Sort = mode
	case "campus":
		if cmd.Value == "" {
			f.Campus = ""
			break
		}
		campus, err := domain.ParseCampus(cmd.Value)
		if err != nil {
			return f, err
		}
		f.Campus = campus
	case "category":
		if cmd.Value == "" {
			f.Category = ""
			break
		}
		category, err := domain.ParseCategory(cmd.Value)
		if err != nil {
			return f, err
		}
		f.Category = category
	case "sold":
		switch strings.ToLower(cmd.Value) {
		case "", "all":
			f.Sold = domain.SoldAll
		case "sold":
			f.Sold = domain.SoldOnly
		case "unsold":
			f.Sold = domain.UnsoldOnly
		default:
			return f, domain.ErrInvalidInput
		}
	}
	f.Page = 1
	return f, nil
}
