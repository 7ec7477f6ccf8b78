// Package policy holds the portal's access rules. Every function is pure:
// the decision depends only on the identity and the record passed in.
package policy

import "portal-service/internal/models"

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

func seesAllDepartments(u models.User) bool {
	return u.Role == models.RoleAdmin || u.Role == models.RoleFacultyGovernor
}

func sameDepartment(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// CanViewRoom decides whether user may join or read room.
// Custom rooms carry no visibility rule beyond existence.
func CanViewRoom(user models.User, room models.Room) Decision {
	switch room.Kind {
	case models.RoomGeneral, models.RoomCustom:
		return allow
	case models.RoomDepartment:
		if sameDepartment(room.Department, user.Department) || seesAllDepartments(user) {
			return allow
		}
		return deny("Access denied")
	default:
		return deny("Access denied")
	}
}

// CanMutateMessage decides whether user may edit or delete msg.
func CanMutateMessage(user models.User, msg models.Message) Decision {
	if msg.SenderID != nil && *msg.SenderID == user.ID {
		return allow
	}
	if user.Role == models.RoleAdmin {
		return allow
	}
	return deny("Cannot modify this message")
}

// CanPostNotification decides whether user may publish notifications.
func CanPostNotification(user models.User) Decision {
	switch user.Role {
	case models.RoleDepartmentGovernor, models.RoleFacultyGovernor, models.RoleAdmin:
		return allow
	}
	return deny("Insufficient permissions")
}

// CanDeleteNotification decides whether user may delete n.
func CanDeleteNotification(user models.User, n models.Notification) Decision {
	switch user.Role {
	case models.RoleAdmin, models.RoleFacultyGovernor:
		return allow
	case models.RoleDepartmentGovernor:
		if n.PostedByID == user.ID {
			return allow
		}
		return deny("Cannot delete others notifications")
	}
	return deny("Insufficient permissions")
}

// CanManageRooms decides whether user may create or delete rooms.
func CanManageRooms(user models.User) Decision {
	if user.Role == models.RoleAdmin {
		return allow
	}
	return deny("Insufficient permissions")
}

// NotificationVisibleTo reports whether n is addressed to user: portal-wide
// notifications reach everyone, targeted ones only their department.
func NotificationVisibleTo(user models.User, n models.Notification) bool {
	return n.TargetDepartment == nil || sameDepartment(n.TargetDepartment, user.Department)
}

// CanViewProfile decides whether viewer may read target's profile. Students
// only see other students.
func CanViewProfile(viewer, target models.User) Decision {
	if viewer.Role == models.RoleStudent && target.Role != models.RoleStudent {
		return deny("Access denied")
	}
	return allow
}
