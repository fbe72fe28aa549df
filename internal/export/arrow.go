// Package export writes recorded runs as Apache Arrow IPC streams and
// renders networks for Graphviz.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/nvandessel/silicon/internal/models"
	"github.com/nvandessel/silicon/internal/store"
)

// Table names a recorded series.
type Table string

const (
	TableSpikes  Table = "spikes"
	TableWeights Table = "weights"
	TableRewards Table = "rewards"
)

// ParseTable validates a table name.
func ParseTable(s string) (Table, error) {
	switch t := Table(s); t {
	case TableSpikes, TableWeights, TableRewards:
		return t, nil
	default:
		return "", fmt.Errorf("unknown table %q (use 'spikes', 'weights', or 'rewards')", s)
	}
}

var (
	spikeFields = []arrow.Field{
		{Name: "time", Type: arrow.PrimitiveTypes.Float64},
		{Name: "neuron", Type: arrow.PrimitiveTypes.Int64},
	}
	weightFields = []arrow.Field{
		{Name: "time", Type: arrow.PrimitiveTypes.Float64},
		{Name: "synapse", Type: arrow.PrimitiveTypes.Int64},
		{Name: "weight", Type: arrow.PrimitiveTypes.Float64},
	}
	rewardFields = []arrow.Field{
		{Name: "time", Type: arrow.PrimitiveTypes.Float64},
		{Name: "class", Type: arrow.PrimitiveTypes.Int64},
		{Name: "correct", Type: arrow.PrimitiveTypes.Float64},
		{Name: "wrong", Type: arrow.PrimitiveTypes.Float64},
		{Name: "reward", Type: arrow.PrimitiveTypes.Float64},
		{Name: "explored", Type: arrow.FixedWidthTypes.Boolean},
		{Name: "applied", Type: arrow.PrimitiveTypes.Int64},
		{Name: "discarded", Type: arrow.PrimitiveTypes.Int64},
	}
)

func schema(fields []arrow.Field, runID string) *arrow.Schema {
	md := arrow.NewMetadata([]string{"run_id"}, []string{runID})
	return arrow.NewSchema(fields, &md)
}

// WriteRun exports one table of a recorded run to w. It returns the number
// of rows written.
func WriteRun(ctx context.Context, st store.Store, runID string, table Table, w io.Writer) (int, error) {
	switch table {
	case TableSpikes:
		spikes, err := st.Spikes(ctx, runID)
		if err != nil {
			return 0, err
		}
		return len(spikes), WriteSpikes(w, runID, spikes)
	case TableWeights:
		samples, err := st.Weights(ctx, runID)
		if err != nil {
			return 0, err
		}
		return len(samples), WriteWeights(w, runID, samples)
	case TableRewards:
		rewards, err := st.Rewards(ctx, runID)
		if err != nil {
			return 0, err
		}
		return len(rewards), WriteRewards(w, runID, rewards)
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
}

// WriteSpikes writes a spike raster as a single-batch Arrow IPC stream.
func WriteSpikes(w io.Writer, runID string, spikes []models.Spike) error {
	return writeBatch(w, schema(spikeFields, runID), func(b *array.RecordBuilder) {
		times := b.Field(0).(*array.Float64Builder)
		ids := b.Field(1).(*array.Int64Builder)
		times.Reserve(len(spikes))
		ids.Reserve(len(spikes))
		for _, sp := range spikes {
			times.Append(sp.Time)
			ids.Append(int64(sp.Neuron))
		}
	})
}

// WriteWeights writes weight samples as a single-batch Arrow IPC stream.
func WriteWeights(w io.Writer, runID string, samples []store.WeightSample) error {
	return writeBatch(w, schema(weightFields, runID), func(b *array.RecordBuilder) {
		times := b.Field(0).(*array.Float64Builder)
		ids := b.Field(1).(*array.Int64Builder)
		weights := b.Field(2).(*array.Float64Builder)
		for _, s := range samples {
			times.Append(s.Time)
			ids.Append(int64(s.Synapse))
			weights.Append(s.Weight)
		}
	})
}

// WriteRewards writes reward outcomes as a single-batch Arrow IPC stream.
func WriteRewards(w io.Writer, runID string, rewards []store.RewardRecord) error {
	return writeBatch(w, schema(rewardFields, runID), func(b *array.RecordBuilder) {
		for _, r := range rewards {
			b.Field(0).(*array.Float64Builder).Append(r.Time)
			b.Field(1).(*array.Int64Builder).Append(int64(r.Class))
			b.Field(2).(*array.Float64Builder).Append(r.Correct)
			b.Field(3).(*array.Float64Builder).Append(r.Wrong)
			b.Field(4).(*array.Float64Builder).Append(r.Reward)
			b.Field(5).(*array.BooleanBuilder).Append(r.Explored)
			b.Field(6).(*array.Int64Builder).Append(int64(r.Applied))
			b.Field(7).(*array.Int64Builder).Append(int64(r.Discarded))
		}
	})
}

func writeBatch(w io.Writer, sc *arrow.Schema, fill func(b *array.RecordBuilder)) error {
	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, sc)
	defer b.Release()

	fill(b)
	rec := b.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(sc), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("write arrow batch: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("close arrow stream: %w", err)
	}
	return nil
}

// ReadSpikes reads a stream produced by WriteSpikes. It returns the run ID
// from the schema metadata.
func ReadSpikes(r io.Reader) (string, []models.Spike, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return "", nil, fmt.Errorf("open arrow stream: %w", err)
	}
	defer rdr.Release()

	sc := rdr.Schema()
	if len(sc.Fields()) != len(spikeFields) || sc.Field(0).Name != "time" || sc.Field(1).Name != "neuron" {
		return "", nil, fmt.Errorf("not a spike table: %s", sc)
	}
	runID := ""
	if i := sc.Metadata().FindKey("run_id"); i >= 0 {
		runID = sc.Metadata().Values()[i]
	}

	var spikes []models.Spike
	for rdr.Next() {
		rec := rdr.Record()
		times := rec.Column(0).(*array.Float64)
		ids := rec.Column(1).(*array.Int64)
		for i := 0; i < int(rec.NumRows()); i++ {
			spikes = append(spikes, models.Spike{Time: times.Value(i), Neuron: models.NeuronID(ids.Value(i))})
		}
	}
	if err := rdr.Err(); err != nil {
		return "", nil, fmt.Errorf("read arrow stream: %w", err)
	}
	return runID, spikes, nil
}
