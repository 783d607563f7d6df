package usecase

// outstanding is an insertion-ordered set of tickers still waiting for data.
type outstanding struct {
	order []string
	index map[string]struct{}
}

func newOutstanding(tickers []string) *outstanding {
	o := &outstanding{index: make(map[string]struct{}, len(tickers))}
	for _, t := range tickers {
		if _, ok := o.index[t]; ok {
			continue
		}
		o.index[t] = struct{}{}
		o.order = append(o.order, t)
	}
	return o
}

func (o *outstanding) Len() int { return len(o.index) }

func (o *outstanding) Remove(t string) { delete(o.index, t) }

// List returns the remaining tickers in their original order.
func (o *outstanding) List() []string {
	out := make([]string, 0, len(o.index))
	for _, t := range o.order {
		if _, ok := o.index[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
