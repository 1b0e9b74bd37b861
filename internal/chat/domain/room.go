package domain

// roomKeySeparator joins the two participant ids of a private room.
const roomKeySeparator = "_"

// ResolveRoomID derives the canonical room key for a pair of
// participants. The pair is sorted lexically before joining, so
// ResolveRoomID(a, b) == ResolveRoomID(b, a) and both sides land in
// the same room no matter who initiates.
func ResolveRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + roomKeySeparator + b
}
