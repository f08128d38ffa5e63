package room

import (
	"testing"

	"pagepair/pkg/domain"
)

func TestResolveSymmetricCounterparty(t *testing.T) {
	paired := domain.Room{ID: "R1", HostID: "A", HostName: "Ana", PartnerID: "B", PartnerName: "Ben"}

	membership, cp, ok := Resolve(paired, "A")
	if membership != domain.MembershipHost || !ok {
		t.Fatalf("host resolution: %v %v", membership, ok)
	}
	if cp.ID != "B" || cp.Name != "Ben" {
		t.Fatalf("host counterparty = %+v, want partner", cp)
	}

	membership, cp, ok = Resolve(paired, "B")
	if membership != domain.MembershipPartner || !ok {
		t.Fatalf("partner resolution: %v %v", membership, ok)
	}
	if cp.ID != "A" || cp.Name != "Ana" {
		t.Fatalf("partner counterparty = %+v, want host", cp)
	}
}

func TestResolveWaitingHost(t *testing.T) {
	solo := domain.Room{ID: "R1", HostID: "A", HostName: "Ana"}
	membership, _, ok := Resolve(solo, "A")
	if membership != domain.MembershipWaiting || ok {
		t.Fatalf("solo host resolution: %v %v", membership, ok)
	}
}

func TestResolveStranger(t *testing.T) {
	paired := domain.Room{ID: "R1", HostID: "A", PartnerID: "B"}
	membership, _, ok := Resolve(paired, "C")
	if membership != domain.MembershipWaiting || ok {
		t.Fatalf("stranger resolution: %v %v", membership, ok)
	}
}

func TestResolvePartnerRename(t *testing.T) {
	before := domain.Room{ID: "R1", HostID: "A", PartnerID: "B", PartnerName: "Ben"}
	after := before
	after.PartnerName = "Benjamin"

	_, cp1, _ := Resolve(before, "A")
	_, cp2, _ := Resolve(after, "A")
	if cp1.ID != cp2.ID {
		t.Fatal("rename must not change the counterparty id")
	}
	if cp2.Name != "Benjamin" {
		t.Fatalf("rename not reflected: %q", cp2.Name)
	}
}
