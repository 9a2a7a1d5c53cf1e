package sync

import (
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Action names a capability checked against a member's role.
type Action string

const (
	ActionUpload       Action = "UPLOAD"
	ActionRemoveSong   Action = "REMOVE_SONG"
	ActionSkip         Action = "SKIP"
	ActionReorderQueue Action = "REORDER_QUEUE"
	ActionPromoteUser  Action = "PROMOTE_USER"
	ActionKickUser     Action = "KICK_USER"
	ActionCloseRoom    Action = "CLOSE_ROOM"
	ActionPlay         Action = "PLAY"
)

// rolePermissions is the single capability table shared by the socket
// gateway and the HTTP layer.
var rolePermissions = map[Action][]models.Role{
	ActionUpload:       {models.RoleHost, models.RoleCohost},
	ActionRemoveSong:   {models.RoleHost},
	ActionSkip:         {models.RoleHost, models.RoleCohost},
	ActionReorderQueue: {models.RoleHost, models.RoleCohost},
	ActionPromoteUser:  {models.RoleHost},
	ActionKickUser:     {models.RoleHost},
	ActionCloseRoom:    {models.RoleHost},
	ActionPlay:         {models.RoleHost, models.RoleCohost, models.RoleListener},
}

// MemberRole resolves the user's role from the room roster.
func MemberRole(room *models.Room, userID string) (models.Role, bool) {
	for i := range room.Members {
		if room.Members[i].UserID.String() == userID {
			return room.Members[i].Role, true
		}
	}
	return "", false
}

// HasPermission evaluates role x action x room policy. Non-members are
// always denied. For uploads the room's WhoCanUpload policy, when set,
// replaces the static table. Pure; never mutates the room.
func HasPermission(room *models.Room, userID string, action Action) bool {
	role, ok := MemberRole(room, userID)
	if !ok {
		return false
	}
	if action == ActionUpload && room.WhoCanUpload != "" {
		switch room.WhoCanUpload {
		case models.UploadAll:
			return true
		case models.UploadHost:
			return role == models.RoleHost
		case models.UploadHostCohost:
			return role == models.RoleHost || role == models.RoleCohost
		}
	}
	for _, allowed := range rolePermissions[action] {
		if role == allowed {
			return true
		}
	}
	return false
}

// IsHost checks room ownership directly, independent of the role table.
// Gates room closure, promotion and settings changes.
func IsHost(room *models.Room, userID string) bool {
	return room.HostID.String() == userID
}
