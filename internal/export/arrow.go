package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/Swabber-io/syscomp/internal/metrics"
)

// Schema is the Arrow schema of an exported history. Ratios are float64 and
// may be +Inf.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "tick", Type: arrow.PrimitiveTypes.Int64},
	{Name: "susceptible", Type: arrow.PrimitiveTypes.Int64},
	{Name: "infected", Type: arrow.PrimitiveTypes.Int64},
	{Name: "resistant", Type: arrow.PrimitiveTypes.Int64},
	{Name: "exposed", Type: arrow.PrimitiveTypes.Int64},
	{Name: "off", Type: arrow.PrimitiveTypes.Int64},
	{Name: "edges", Type: arrow.PrimitiveTypes.Int64},
	{Name: "edges_added", Type: arrow.PrimitiveTypes.Int64},
	{Name: "edges_removed", Type: arrow.PrimitiveTypes.Int64},
	{Name: "resistant_susceptible", Type: arrow.PrimitiveTypes.Float64},
	{Name: "infected_susceptible", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// buildRecord packs history into a single record. The caller releases it.
func buildRecord(mem memory.Allocator, history []metrics.Snapshot) arrow.Record {
	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	ints := make([]*array.Int64Builder, 9)
	for i := range ints {
		ints[i] = b.Field(i).(*array.Int64Builder)
	}
	rs := b.Field(9).(*array.Float64Builder)
	is := b.Field(10).(*array.Float64Builder)

	for _, s := range history {
		vals := [9]int{
			s.Tick, s.Counts.Susceptible, s.Counts.Infected, s.Counts.Resistant,
			s.Counts.Exposed, s.Counts.Off, s.Edges, s.EdgesAdded, s.EdgesRemoved,
		}
		for i, v := range vals {
			ints[i].Append(int64(v))
		}
		rs.Append(float64(s.ResistantSusceptible))
		is.Append(float64(s.InfectedSusceptible))
	}
	return b.NewRecord()
}

// appendRows decodes rec onto out.
func appendRows(out []metrics.Snapshot, rec arrow.Record) []metrics.Snapshot {
	cols := make([][]int64, 9)
	for c := range cols {
		cols[c] = rec.Column(c).(*array.Int64).Int64Values()
	}
	rs := rec.Column(9).(*array.Float64).Float64Values()
	is := rec.Column(10).(*array.Float64).Float64Values()

	for row := 0; row < int(rec.NumRows()); row++ {
		out = append(out, metrics.Snapshot{
			Tick: int(cols[0][row]),
			Counts: metrics.Counts{
				Susceptible: int(cols[1][row]),
				Infected:    int(cols[2][row]),
				Resistant:   int(cols[3][row]),
				Exposed:     int(cols[4][row]),
				Off:         int(cols[5][row]),
			},
			Edges:                int(cols[6][row]),
			EdgesAdded:           int(cols[7][row]),
			EdgesRemoved:         int(cols[8][row]),
			ResistantSusceptible: metrics.Ratio(rs[row]),
			InfectedSusceptible:  metrics.Ratio(is[row]),
		})
	}
	return out
}

// WriteArrow writes history as a single-record Arrow IPC file. The file
// footer is written after the record, so w must be seekable.
func WriteArrow(w io.WriteSeeker, history []metrics.Snapshot) error {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem, history)
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	return fw.Close()
}

// ReadArrow reads every record of an Arrow IPC file written by WriteArrow.
func ReadArrow(r ipc.ReadAtSeeker) ([]metrics.Snapshot, error) {
	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem), ipc.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("opening arrow file: %w", err)
	}
	defer fr.Close()

	var out []metrics.Snapshot
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("reading record %d: %w", i, err)
		}
		out = appendRows(out, rec)
	}
	return out, nil
}

// WriteArrowStream writes history in the Arrow IPC stream format, which
// needs no seeking and suits pipes and stdout.
func WriteArrowStream(w io.Writer, history []metrics.Snapshot) error {
	mem := memory.NewGoAllocator()
	rec := buildRecord(mem, history)
	defer rec.Release()

	sw := ipc.NewWriter(w, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err := sw.Write(rec); err != nil {
		sw.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	return sw.Close()
}

// ReadArrowStream reads a history written by WriteArrowStream.
func ReadArrowStream(r io.Reader) ([]metrics.Snapshot, error) {
	mem := memory.NewGoAllocator()
	sr, err := ipc.NewReader(r, ipc.WithAllocator(mem), ipc.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer sr.Release()

	var out []metrics.Snapshot
	for sr.Next() {
		out = appendRows(out, sr.Record())
	}
	if err := sr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return out, nil
}
