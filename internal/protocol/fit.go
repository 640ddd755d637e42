package protocol

// FitPrefix finds the largest prefix of log that, piggybacked onto msg,
// serializes under mtu bytes (spec §4.4, SPEC_FULL §D.2). It follows the
// original implementation's linear scan over i ∈ [0, n]: grow the prefix
// one entry at a time and stop at the first length whose encoding no
// longer fits, returning the previous (largest fitting) length. O(n) is
// acceptable since n is bounded by live churn, not cluster size.
//
// ok is false only when even the zero-length prefix doesn't fit (or fails
// to encode) — the
// caller should send msg with no piggybacked changes and log a warning
// (§4.4: "if even i=0 exceeds MTU...").
func FitPrefix(codec Codec, msg Message, log []Member, mtu int) (fitted Message, n int, ok bool) {
	msg.StateChanges = nil
	encoded, err := codec.Encode(msg)
	if err != nil || len(encoded) >= mtu {
		return msg, 0, false
	}
	best := msg
	bestN := 0

	for i := 1; i <= len(log); i++ {
		msg.StateChanges = log[:i]
		encoded, err := codec.Encode(msg)
		if err != nil || len(encoded) >= mtu {
			break
		}
		best = msg
		bestN = i
	}
	return best, bestN, true
}
