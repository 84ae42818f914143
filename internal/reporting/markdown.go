package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Launch Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	s := r.Sale
	sb.WriteString("## Sale\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Address | %s |\n", s.Address))
	sb.WriteString(fmt.Sprintf("| Owner | %s |\n", s.Owner))
	sb.WriteString(fmt.Sprintf("| Assets | %s / %s |\n", s.SaleAsset, s.BaseAsset))
	sb.WriteString(fmt.Sprintf("| Phase | %s |\n", s.Phase))
	sb.WriteString(fmt.Sprintf("| Hard Cap | %s %s |\n", s.HardCap, s.BaseAsset))
	sb.WriteString(fmt.Sprintf("| Soft Cap | %s %s |\n", s.SoftCap, s.BaseAsset))
	sb.WriteString(fmt.Sprintf("| Collected | %s %s |\n", s.Collected, s.BaseAsset))
	sb.WriteString(fmt.Sprintf("| Sold | %s %s |\n", s.Sold, s.SaleAsset))
	sb.WriteString(fmt.Sprintf("| Buyers | %d |\n", s.Buyers))
	sb.WriteString("\n")

	sb.WriteString("## Settlement\n\n")
	if st := r.Settlement; st != nil {
		sb.WriteString("| Item | Amount |\n")
		sb.WriteString("|------|--------|\n")
		sb.WriteString(fmt.Sprintf("| Sale Fee | %s %s |\n", st.SaleFee, s.SaleAsset))
		sb.WriteString(fmt.Sprintf("| Base Fee | %s %s |\n", st.BaseFee, s.BaseAsset))
		sb.WriteString(fmt.Sprintf("| Sale Net | %s %s |\n", st.SaleNet, s.SaleAsset))
		sb.WriteString(fmt.Sprintf("| Base Net | %s %s |\n", st.BaseNet, s.BaseAsset))
		sb.WriteString(fmt.Sprintf("| Pool (sale) | %s %s |\n", st.SaleForPool, s.SaleAsset))
		sb.WriteString(fmt.Sprintf("| Pool (base) | %s %s |\n", st.BaseForPool, s.BaseAsset))
		sb.WriteString(fmt.Sprintf("| To Owner | %s %s |\n", st.BaseToOwner, s.BaseAsset))
		sb.WriteString(fmt.Sprintf("| Owner Received | %s %s |\n", st.OwnerBase, s.BaseAsset))
		sb.WriteString(fmt.Sprintf("| Burned | %s %s |\n", st.Burned, s.SaleAsset))
	} else {
		sb.WriteString(fmt.Sprintf("Sale did not succeed. Owner reclaimed %s %s.\n", s.Reclaimed, s.SaleAsset))
	}
	sb.WriteString("\n")

	if l := r.Lock; l != nil {
		sb.WriteString("## Liquidity Lock\n\n")
		sb.WriteString("| ID | Pair | Shares | Locked | Unlocks | Withdrawn |\n")
		sb.WriteString("|----|------|--------|--------|---------|-----------|\n")
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			l.ID, l.Pair, l.Amount,
			time.Unix(l.LockTime, 0).UTC().Format(time.RFC3339),
			time.Unix(l.UnlockTime, 0).UTC().Format(time.RFC3339),
			l.Withdrawn))
		sb.WriteString("\n")
	}

	sb.WriteString("## Buyers\n\n")
	if len(r.Buyers) > 0 {
		sb.WriteString("| Buyer | Deposited | Owed | Received |\n")
		sb.WriteString("|-------|-----------|------|----------|\n")
		for _, b := range r.Buyers {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", b.Address, b.Deposited, b.Owed, b.Received))
		}
	} else {
		sb.WriteString("No deposits.\n")
	}
	sb.WriteString("\n")

	if len(r.Referrals) > 0 {
		sb.WriteString("## Referrals\n\n")
		sb.WriteString("| Referrer | Claimed |\n")
		sb.WriteString("|----------|---------|\n")
		for _, ref := range r.Referrals {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", ref.Address, ref.Claimed))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Events\n\n")
	if len(r.Events) > 0 {
		sb.WriteString("| Kind | Count |\n")
		sb.WriteString("|------|-------|\n")
		for _, e := range r.Events {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", e.Kind, e.Count))
		}
	} else {
		sb.WriteString("No events indexed.\n")
	}

	return sb.String()
}
