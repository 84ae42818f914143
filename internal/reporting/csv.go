package reporting

import (
	"encoding/csv"
	"io"
	"strconv"

	"token-launchpad/internal/domain"
)

// WriteEventsCSV writes events as CSV with a header row.
func WriteEventsCSV(w io.Writer, events []*domain.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"tx_seq", "index", "kind", "contract", "actor", "counterparty", "asset", "amount", "ref", "timestamp", "id",
	}); err != nil {
		return err
	}
	for _, e := range events {
		err := cw.Write([]string{
			strconv.FormatUint(e.TxSeq, 10),
			strconv.Itoa(e.Index),
			string(e.Kind),
			e.Contract,
			e.Actor,
			e.Counterparty,
			e.Asset,
			e.Amount,
			e.Ref,
			strconv.FormatInt(e.Timestamp, 10),
			e.ID,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
