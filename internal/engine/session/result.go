package session

import (
	"mapharvest/internal/engine/faults"
	"mapharvest/internal/model"
)

// Result tags one card-processing attempt. Exactly one of Record or Failure
// is set; construct only through Succeeded and Failed so callers always get
// a well-formed value and have to branch on OK.
type Result struct {
	CardIndex int
	Record    *model.Record
	Failure   *faults.Decision
}

func Succeeded(cardIndex int, rec *model.Record) Result {
	return Result{CardIndex: cardIndex, Record: rec}
}

func Failed(cardIndex int, d faults.Decision) Result {
	return Result{CardIndex: cardIndex, Failure: &d}
}

func (r Result) OK() bool {
	return r.Record != nil
}
