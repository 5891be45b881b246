package adapter

import (
	"time"

	m "lasso.dev/pkg/lasso/internal/model"
)

func sampleReport(cut string, id int, fingerprint string) m.Report {
	return m.Report{
		RunID:       "run-1",
		CUT:         cut,
		ClassName:   "Stack",
		AdapterID:   id,
		Fingerprint: fingerprint,
		Members:     []string{"push -> Push", "pop -> Pop"},
	}
}

func sampleRecord(name string, passed bool) m.SequenceRecord {
	return m.SequenceRecord{
		Sequence:     name,
		Instantiated: true,
		Passed:       passed,
		Observations: []m.Observation{
			{Statement: 0, Member: "Stack", Status: m.StatementOK, Duration: time.Millisecond},
			{Statement: 1, Member: "Push", Status: m.StatementOK, Value: "1", Duration: 2 * time.Millisecond},
			{Statement: 2, Member: "Pop", Status: m.StatementFailed, Error: "empty", Duration: time.Millisecond},
		},
	}
}
