package room

import "pagepair/pkg/domain"

// Resolve recomputes the local participant's membership and counterparty
// from a room snapshot alone. It trusts no prior state: every room update
// runs the same derivation, which is what makes the host-waiting to
// partner-joined transition and partner renames fall out for free.
//
// Resolution is symmetric: the host's counterparty is the partner and the
// partner's counterparty is the host. For a viewer who is neither (a
// snapshot observed mid-join teardown, say) the membership defaults to
// waiting with no counterparty.
func Resolve(room domain.Room, myUserID string) (domain.Membership, domain.Counterparty, bool) {
	switch {
	case room.HostID == myUserID && !room.HasPartner():
		return domain.MembershipWaiting, domain.Counterparty{}, false
	case room.HostID == myUserID:
		return domain.MembershipHost, domain.Counterparty{ID: room.PartnerID, Name: room.PartnerName}, true
	case room.PartnerID == myUserID:
		return domain.MembershipPartner, domain.Counterparty{ID: room.HostID, Name: room.HostName}, true
	default:
		return domain.MembershipWaiting, domain.Counterparty{}, false
	}
}
