package sink

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

const observationColumns = 10

// TimescaleSink stores observations in a hypertable keyed by
// (run_id, slot, seq).
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteBatch(observations []*domain.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (run_id, slot, identifier, kind, category, ts, seq, available, value_text, value_num) VALUES ")

	args := make([]any, 0, len(observations)*observationColumns)
	for i, o := range observations {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for c := 0; c < observationColumns; c++ {
			if c > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", len(args)+c+1)
		}
		b.WriteString(")")

		var text, num any
		if o.Available {
			text = o.Text
			if o.Number != nil {
				num = *o.Number
			}
		}
		args = append(args,
			o.RunID,
			o.Slot,
			o.Identifier,
			o.Kind.String(),
			string(o.Category),
			o.Timestamp,
			o.Seq,
			o.Available,
			text,
			num,
		)
	}

	b.WriteString(" ON CONFLICT (run_id, slot, seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.BatchSink = (*TimescaleSink)(nil)
