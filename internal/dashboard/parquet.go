package dashboard

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// TidySchema is one row per borough and metric.
var TidySchema = arrow.NewSchema([]arrow.Field{
	{Name: "borough", Type: arrow.BinaryTypes.String},
	{Name: "metric", Type: arrow.BinaryTypes.String},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// Row is one tidy observation.
type Row struct {
	Borough string
	Metric  string
	Value   float64
}

// Tidy returns the means of d as rows ordered by borough then metric.
// Fractions appear as "gender:<label>" and "race:<label>" metrics, and the
// group size as "n".
func (d *Document) Tidy() []Row {
	var rows []Row
	for _, name := range d.Names() {
		b := d.Boroughs[name]
		var part []Row
		for m, v := range b.Means {
			part = append(part, Row{Borough: name, Metric: m, Value: v})
		}
		for l, v := range b.Gender {
			part = append(part, Row{Borough: name, Metric: "gender:" + l, Value: v})
		}
		for l, v := range b.Race {
			part = append(part, Row{Borough: name, Metric: "race:" + l, Value: v})
		}
		part = append(part, Row{Borough: name, Metric: "n", Value: float64(b.N)})
		sort.Slice(part, func(i, j int) bool { return part[i].Metric < part[j].Metric })
		rows = append(rows, part...)
	}
	return rows
}

// WriteParquet writes the tidy rows of d as a snappy-compressed parquet file.
func (d *Document) WriteParquet(path string) error {
	builder := array.NewRecordBuilder(memory.NewGoAllocator(), TidySchema)
	defer builder.Release()

	fields := builder.Fields()
	boroughField := fields[0].(*array.StringBuilder)
	metricField := fields[1].(*array.StringBuilder)
	valueField := fields[2].(*array.Float64Builder)
	for _, r := range d.Tidy() {
		boroughField.Append(r.Borough)
		metricField.Append(r.Metric)
		valueField.Append(r.Value)
	}
	record := builder.NewRecord()
	defer record.Release()

	var buf bytes.Buffer
	writer, err := pqarrow.NewFileWriter(
		TidySchema,
		&buf,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
