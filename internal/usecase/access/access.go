// Package access holds the authorization predicates shared by every entry point.
package access

import (
	"github.com/johnquangdev/qa-review/internal/domain/entities"
)

// IsAuthorized reports whether subject may read resource
func IsAuthorized(subject entities.Subject, resource entities.OwnedResource) bool {
	if resource == nil {
		return false
	}
	if subject.IsAdmin() || resource.OwnerID() == subject.UserID || resource.Public() {
		return true
	}
	if team := resource.TeamScope(); team != nil && subject.IsTeamMember(*team) {
		return true
	}
	return false
}

// CanModify reports whether subject may change resource
func CanModify(subject entities.Subject, resource entities.OwnedResource) bool {
	if resource == nil {
		return false
	}
	return subject.IsAdmin() || resource.OwnerID() == subject.UserID
}

// CanEdit reports whether subject may edit the transcript of a recording.
// Reviewers work on recordings shared with their team.
func CanEdit(subject entities.Subject, recording *entities.Recording) bool {
	if recording == nil {
		return false
	}
	if CanModify(subject, recording) {
		return true
	}
	return recording.TeamID != nil && subject.IsTeamMember(*recording.TeamID)
}
