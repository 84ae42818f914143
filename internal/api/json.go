package api

import (
	"token-launchpad/internal/domain"
)

type saleJSON struct {
	Address   string `json:"address"`
	Owner     string `json:"owner"`
	SaleAsset string `json:"sale_asset"`
	BaseAsset string `json:"base_asset"`
	Phase     string `json:"phase"`
	Collected string `json:"collected"`
	Sold      string `json:"sold"`
	HardCap   string `json:"hard_cap"`
	SoftCap   string `json:"soft_cap"`
	Buyers    uint64 `json:"buyers"`
	Finalized bool   `json:"finalized"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	UpdatedAt int64  `json:"updated_at"`
}

func toSaleJSON(s *domain.SaleSnapshot) saleJSON {
	return saleJSON{
		Address:   s.Address,
		Owner:     s.Owner,
		SaleAsset: s.SaleAsset,
		BaseAsset: s.BaseAsset,
		Phase:     s.Phase.String(),
		Collected: s.Collected,
		Sold:      s.Sold,
		HardCap:   s.HardCap,
		SoftCap:   s.SoftCap,
		Buyers:    s.Buyers,
		Finalized: s.Finalized,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		UpdatedAt: s.UpdatedAt,
	}
}

type eventJSON struct {
	ID           string `json:"id"`
	TxSeq        uint64 `json:"tx_seq"`
	Index        int    `json:"index"`
	Kind         string `json:"kind"`
	Contract     string `json:"contract"`
	Actor        string `json:"actor,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Asset        string `json:"asset,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Ref          string `json:"ref,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

func toEventsJSON(events []*domain.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:           e.ID,
			TxSeq:        e.TxSeq,
			Index:        e.Index,
			Kind:         string(e.Kind),
			Contract:     e.Contract,
			Actor:        e.Actor,
			Counterparty: e.Counterparty,
			Asset:        e.Asset,
			Amount:       e.Amount,
			Ref:          e.Ref,
			Timestamp:    e.Timestamp,
		})
	}
	return out
}

type lockJSON struct {
	ID            uint64 `json:"id"`
	Owner         string `json:"owner"`
	Token         string `json:"token"`
	Amount        string `json:"amount"`
	InitialAmount string `json:"initial_amount"`
	LockTime      int64  `json:"lock_time"`
	UnlockTime    int64  `json:"unlock_time"`
}

func toLockJSON(e domain.LockEntry) lockJSON {
	return lockJSON{
		ID:            e.ID,
		Owner:         e.Owner.String(),
		Token:         e.Token.String(),
		Amount:        e.Amount.Dec(),
		InitialAmount: e.InitialAmount.Dec(),
		LockTime:      e.LockTime,
		UnlockTime:    e.UnlockTime,
	}
}
