package models

import (
	"fmt"
	"strings"
)

// BoardRole is the permission level a user holds on a board. Only the three
// constants below are valid; collaborators are never owners.
type BoardRole string

const (
	RoleOwner  BoardRole = "owner"
	RoleEditor BoardRole = "editor"
	RoleViewer BoardRole = "viewer"
)

func (r BoardRole) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

func (r BoardRole) String() string {
	return string(r)
}

// ParseCollaboratorRole accepts the roles an owner may grant. An empty value
// means viewer.
func ParseCollaboratorRole(value string) (BoardRole, error) {
	switch BoardRole(strings.ToLower(strings.TrimSpace(value))) {
	case "", RoleViewer:
		return RoleViewer, nil
	case RoleEditor:
		return RoleEditor, nil
	default:
		return "", fmt.Errorf("invalid collaborator role %q", value)
	}
}
