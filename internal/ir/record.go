package ir

// EventRecord is the canonical form of one engine step.
type EventRecord struct {
	RunID        string       `json:"run_id"`
	Epoch        int64        `json:"epoch"`
	Input        Value        `json:"input"`
	Outcome      string       `json:"outcome"`
	Transactions []TxRecord   `json:"transactions"`
	Collisions   []PairRecord `json:"collisions,omitempty"`
	Crash        *CrashRecord `json:"crash,omitempty"`
}

// TxRecord is one derived transaction at its position in the step.
type TxRecord struct {
	Position  int   `json:"position"`
	ReducerID int   `json:"reducer_id"`
	Body      Value `json:"body"`
}

// PairRecord is a colliding pair of positions, I > J.
type PairRecord struct {
	I int `json:"i"`
	J int `json:"j"`
}

// CrashRecord describes the transaction that aborted a step.
type CrashRecord struct {
	Position   int    `json:"position"`
	ReducerID  int    `json:"reducer_id"`
	Applied    int    `json:"applied"`
	RolledBack bool   `json:"rolled_back"`
	Error      string `json:"error"`
}

// Value lowers the record to an Object. RunID is omitted: two runs that
// make the same decisions produce the same value.
func (r EventRecord) Value() Object {
	txs := make(Array, len(r.Transactions))
	for i, tx := range r.Transactions {
		txs[i] = Object{
			"position":   Int(tx.Position),
			"reducer_id": Int(tx.ReducerID),
			"body":       tx.Body,
		}
	}

	pairs := make(Array, len(r.Collisions))
	for i, p := range r.Collisions {
		pairs[i] = Array{Int(p.I), Int(p.J)}
	}

	obj := Object{
		"epoch":        Int(r.Epoch),
		"input":        r.Input,
		"outcome":      String(r.Outcome),
		"transactions": txs,
		"collisions":   pairs,
	}
	if r.Crash != nil {
		obj["crash"] = Object{
			"position":    Int(r.Crash.Position),
			"reducer_id":  Int(r.Crash.ReducerID),
			"applied":     Int(r.Crash.Applied),
			"rolled_back": Bool(r.Crash.RolledBack),
			"error":       String(r.Crash.Error),
		}
	}
	return obj
}
