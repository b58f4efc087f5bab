package entity

import "testing"

func TestPairKeyIsSymmetric(t *testing.T) {
	if PairKey("alice", "bob") != PairKey("bob", "alice") {
		t.Errorf("pair key must not depend on argument order")
	}
	if PairKey("alice", "bob") == PairKey("alice", "carol") {
		t.Errorf("different pairs must not collide")
	}
}

func TestConversationParticipants(t *testing.T) {
	c := Conversation{ParticipantA: "alice", ParticipantB: "bob"}

	if !c.HasParticipant("alice") || !c.HasParticipant("bob") {
		t.Errorf("both participants must be members")
	}
	if c.HasParticipant("carol") {
		t.Errorf("outsiders must not be members")
	}

	if got := c.OtherParticipant("alice"); got != "bob" {
		t.Errorf("other participant. GOT[%s], EXPECTED[bob]", got)
	}
	if got := c.OtherParticipant("bob"); got != "alice" {
		t.Errorf("other participant. GOT[%s], EXPECTED[alice]", got)
	}
}
