package service

import (
	"strings"

	"app/internal/model"
)

// Viewer is the identity a course listing is filtered for.
type Viewer struct {
	UserID int64
	// Groups are the names of the domain groups the viewer belongs to.
	Groups []string
	// ViewHidden lets the viewer see courses they hold no grant on, unless
	// an explicit GroupFilter narrows the listing.
	ViewHidden bool
	// GroupFilter, when non-empty, requests only courses assigned to that
	// exact group (current or legacy class name).
	GroupFilter string
}

// accessGrant is one OR-branch of the visibility check. Branches are
// evaluated in order with short-circuit; class hierarchies are deliberately
// avoided here.
type accessGrant func(v Viewer, c *model.Course) bool

var accessGrants = []accessGrant{
	isOwner,
	isMaintainer,
	isTeacher,
	sharesGroup,
	isPublic,
	matchesGroupFilter,
}

func isOwner(v Viewer, c *model.Course) bool {
	return c.OwnerID == v.UserID
}

func isMaintainer(v Viewer, c *model.Course) bool {
	return containsID(c.MaintainerIDs, v.UserID)
}

func isTeacher(v Viewer, c *model.Course) bool {
	return containsID(c.TeacherIDs, v.UserID)
}

func sharesGroup(v Viewer, c *model.Course) bool {
	for _, g := range v.Groups {
		if containsString(c.AssignedGroups, g) {
			return true
		}
	}
	return false
}

// isPublic: an empty assigned-group set means visible to everyone with base
// view permission, regardless of the viewer's own groups.
func isPublic(_ Viewer, c *model.Course) bool {
	return len(c.AssignedGroups) == 0
}

func matchesGroupFilter(v Viewer, c *model.Course) bool {
	if v.GroupFilter == "" {
		return false
	}
	return containsString(c.AssignedGroups, v.GroupFilter) ||
		containsString(c.LegacyClasses, v.GroupFilter)
}

// Visible reports whether the viewer may see the course. Holders of the
// hidden-course permission bypass the grant checks entirely, but only when
// no explicit group filter was requested.
func Visible(v Viewer, c *model.Course) bool {
	if v.ViewHidden && v.GroupFilter == "" {
		return true
	}
	for _, grant := range accessGrants {
		if grant(v, c) {
			return true
		}
	}
	return false
}

// MatchTitle is the case-insensitive title search rule: queries of length
// two or more match anywhere in the title, a single character matches only
// as a prefix. An empty query matches everything.
func MatchTitle(title, query string) bool {
	if query == "" {
		return true
	}
	title = strings.ToLower(title)
	query = strings.ToLower(query)
	if len([]rune(query)) < 2 {
		return strings.HasPrefix(title, query)
	}
	return strings.Contains(title, query)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
