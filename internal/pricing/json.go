package pricing

import "encoding/json"

type swapResultJSON struct {
	AmountIn         uint64 `json:"amountIn"`
	AmountInAfterFee uint64 `json:"amountInAfterFee"`
	ReserveIn        uint64 `json:"reserveIn"`
	ReserveOut       uint64 `json:"reserveOut"`
	K                string `json:"k"`
	NewReserveIn     string `json:"newReserveIn"`
	NewReserveOut    uint64 `json:"newReserveOut"`
	AmountOut        uint64 `json:"amountOut"`
}

func (r *SwapResult) view() swapResultJSON {
	return swapResultJSON{
		AmountIn:         r.AmountIn,
		AmountInAfterFee: r.AmountInAfterFee,
		ReserveIn:        r.ReserveIn,
		ReserveOut:       r.ReserveOut,
		K:                r.K.String(),
		NewReserveIn:     r.NewReserveIn.String(),
		NewReserveOut:    r.NewReserveOut,
		AmountOut:        r.AmountOut,
	}
}

// MarshalJSON renders the 128-bit intermediates as decimal strings.
func (r *SwapResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

func (q *Quote) MarshalJSON() ([]byte, error) {
	var base swapResultJSON
	if q.SwapResult != nil {
		base = q.SwapResult.view()
	}
	return json.Marshal(struct {
		swapResultJSON
		FeeBps      uint16  `json:"feeBps"`
		SlippageBps uint16  `json:"slippageBps"`
		MinOut      uint64  `json:"minOut"`
		PriceImpact float64 `json:"priceImpact"`
	}{
		swapResultJSON: base,
		FeeBps:         q.FeeBps,
		SlippageBps:    q.SlippageBps,
		MinOut:         q.MinOut,
		PriceImpact:    q.PriceImpact,
	})
}
