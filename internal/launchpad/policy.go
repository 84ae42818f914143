package launchpad

// AccessInput is everything an access policy may look at.
type AccessInput struct {
	Now                int64
	StartTime          int64
	Round1Length       int64
	WhitelistOnly      bool
	Whitelisted        bool
	EarlyAccessEnabled bool
	HoldsEarlyAccess   bool
}

// InRound1 reports whether the early-access window is open.
func (in AccessInput) InRound1() bool {
	return in.Now < in.StartTime+in.Round1Length
}

func (in AccessInput) round1Gated() bool {
	return in.InRound1() && (in.WhitelistOnly || in.EarlyAccessEnabled)
}

// AccessPolicy decides whether a buyer may deposit.
type AccessPolicy func(in AccessInput) bool

// EitherGate admits a buyer during a gated round 1 if they are whitelisted
// or hold an early-access token.
func EitherGate(in AccessInput) bool {
	if in.round1Gated() {
		return in.Whitelisted || in.HoldsEarlyAccess
	}
	return !in.WhitelistOnly || in.Whitelisted
}

// StrictGate admits a buyer during a gated round 1 only if every enabled
// gate passes.
func StrictGate(in AccessInput) bool {
	if in.round1Gated() {
		if in.WhitelistOnly && !in.Whitelisted {
			return false
		}
		if in.EarlyAccessEnabled && !in.HoldsEarlyAccess {
			return false
		}
		return true
	}
	return !in.WhitelistOnly || in.Whitelisted
}
