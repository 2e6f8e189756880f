package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CreatePaginationComponents creates a set of pagination buttons. The
// custom ID of each button is prefix:page[:arg...].
func CreatePaginationComponents(currentPage, totalPages int, customIDPrefix string, args ...string) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}

	buttonArgs := ""
	for _, arg := range args {
		buttonArgs += ":" + arg
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage == 1,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage-1, buttonArgs),
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage == totalPages,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage+1, buttonArgs),
				},
			},
		},
	}
}

// ParsePaginationID splits a custom ID built by CreatePaginationComponents.
func ParsePaginationID(customID, customIDPrefix string) (page int, args []string, ok bool) {
	rest, found := strings.CutPrefix(customID, customIDPrefix+":")
	if !found {
		return 0, nil, false
	}
	parts := strings.Split(rest, ":")
	page, err := strconv.Atoi(parts[0])
	if err != nil || page < 1 {
		return 0, nil, false
	}
	return page, parts[1:], true
}

// PageBounds returns the slice bounds of page (1-based) and the page count.
// Out-of-range pages are clamped.
func PageBounds(total, pageSize, page int) (start, end, pages int) {
	pages = (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)
	start = (page - 1) * pageSize
	end = min(start+pageSize, total)
	return start, end, pages
}
