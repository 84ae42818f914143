package reporting

import (
	"sort"
	"time"

	"github.com/holiman/uint256"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/num"
	"token-launchpad/internal/simulation"
)

// Build converts a simulation result and the events it indexed into a Report.
func Build(runID string, generatedAt time.Time, res *simulation.Result, events []*domain.Event) *Report {
	saleDec, baseDec := res.SaleAsset.Decimals, res.BaseAsset.Decimals
	sale := func(v *uint256.Int) string { return formatOrZero(v, saleDec) }
	base := func(v *uint256.Int) string { return formatOrZero(v, baseDec) }

	r := &Report{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Sale: SaleSection{
			Address:   res.Sale.String(),
			Owner:     res.Info.Config.Owner.String(),
			SaleAsset: res.SaleAsset.Symbol,
			BaseAsset: res.BaseAsset.Symbol,
			Phase:     res.Phase.String(),
			HardCap:   base(res.Info.Config.HardCap),
			SoftCap:   base(res.Info.Config.SoftCap),
			Collected: base(res.Status.TotalBaseCollected),
			Sold:      sale(res.Status.TotalTokensSold),
			Buyers:    res.Status.BuyerCount,
			Reclaimed: sale(res.OwnerReclaimed),
		},
	}

	if st := res.Settlement; st != nil {
		r.Settlement = &SettlementSection{
			SaleFee:     sale(st.SaleFee),
			BaseFee:     base(st.BaseFee),
			SaleNet:     sale(st.SaleNet),
			BaseNet:     base(st.BaseNet),
			SaleForPool: sale(st.SaleForPool),
			BaseForPool: base(st.BaseForPool),
			BaseToOwner: base(st.BaseToOwner),
			OwnerBase:   base(res.OwnerBaseProceeds),
			Burned:      sale(res.Burned),
		}
	}

	if l := res.Lock; l != nil {
		r.Lock = &LockSection{
			ID:         l.ID,
			Pair:       res.Pair.String(),
			Amount:     formatOrZero(l.Amount, amm.ShareDecimals),
			LockTime:   l.LockTime,
			UnlockTime: l.UnlockTime,
			Withdrawn:  formatOrZero(res.Withdrawn, amm.ShareDecimals),
		}
	}

	received := sale
	if res.Phase == domain.PhaseFailed {
		received = base
	}
	for _, b := range res.Buyers {
		r.Buyers = append(r.Buyers, BuyerRow{
			Address:   b.Address.String(),
			Deposited: base(b.Deposited),
			Owed:      sale(b.Owed),
			Received:  received(b.Received),
		})
	}
	for _, ref := range res.Referrals {
		r.Referrals = append(r.Referrals, ReferralRow{Address: ref.Address.String(), Claimed: sale(ref.Claimed)})
	}

	r.Events = countEvents(events)
	return r
}

func countEvents(events []*domain.Event) []EventCountRow {
	counts := make(map[domain.EventKind]int)
	for _, e := range events {
		counts[e.Kind]++
	}
	rows := make([]EventCountRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, EventCountRow{Kind: string(k), Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Kind < rows[j].Kind })
	return rows
}

func formatOrZero(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return num.Format(v, decimals)
}
