package models

import (
	"testing"
)

func TestRoomKeyForPair_OrderIndependent(t *testing.T) {
	if got, want := RoomKeyForPair(7, 12), RoomKeyForPair(12, 7); got != want {
		t.Errorf("room key should not depend on argument order: %s vs %s", got, want)
	}
}

func TestRoomKeyForPair_Format(t *testing.T) {
	if got := RoomKeyForPair(12, 7); got != "chat_7_12" {
		t.Errorf("expected chat_7_12, got %s", got)
	}
	if got := RoomKeyForPair(3, 3); got != "chat_3_3" {
		t.Errorf("expected chat_3_3, got %s", got)
	}
}

func TestRoomKeyForPair_DistinctPairs(t *testing.T) {
	if RoomKeyForPair(1, 2) == RoomKeyForPair(1, 3) {
		t.Errorf("different pairs should derive different rooms")
	}
}

func TestStaticRoomForRole(t *testing.T) {
	room, ok := StaticRoomForRole(RoleRegulator)
	if !ok || room != "admin_regulation" {
		t.Errorf("regulator room: got %q, %v", room, ok)
	}

	room, ok = StaticRoomForRole(RoleAdmin)
	if !ok || room != "admin_general" {
		t.Errorf("admin room: got %q, %v", room, ok)
	}

	if _, ok := StaticRoomForRole(RoleDoctor); ok {
		t.Errorf("doctors have no administrative room")
	}
	if _, ok := StaticRoomForRole(""); ok {
		t.Errorf("empty role should resolve nothing")
	}
}
