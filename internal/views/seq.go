package views

import "sync/atomic"

// requestSeq hands out generation tokens for one kind of load. Only the
// response carrying the newest token may be applied.
type requestSeq struct {
	latest atomic.Uint64
}

func (s *requestSeq) Next() uint64 {
	return s.latest.Add(1)
}

func (s *requestSeq) IsLatest(token uint64) bool {
	return s.latest.Load() == token
}
