package models

import "fmt"

// staticRooms maps roles with an administrative broadcast room to the fixed
// room identifier for that role. This is a static table, never a DB lookup.
var staticRooms = map[string]string{
	RoleRegulator: "admin_regulation",
	RoleAdmin:     "admin_general",
}

// RoomKeyForPair derives the canonical room identifier for a 1:1 conversation.
// The two ids are ordered ascending so the derivation is idempotent regardless
// of which participant asks first.
func RoomKeyForPair(userA, userB uint) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("chat_%d_%d", userA, userB)
}

// StaticRoomForRole resolves the fixed administrative room for a role, if any.
func StaticRoomForRole(role string) (string, bool) {
	room, ok := staticRooms[role]
	return room, ok
}
