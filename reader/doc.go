// Package reader turns shard files into tables.
//
// Two formats are supported: CSV with a header row, and parquet. Both are
// exposed through the Decoder interface, which takes the path of one file
// and the list of columns to materialize:
//
//	dec, err := reader.DecoderFor(reader.Parquet)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	t, err := dec.Decode("data/table_0.parquet", []string{"A", "I", "P"})
//
// The parquet decoder reads only the column chunks it is asked for. The CSV
// decoder still scans every line but only keeps the requested fields.
//
// # Shard sets
//
// Glob lists the files of a shard set in path order, and Loader decodes them
// in parallel while handing tables back in that same order:
//
//	paths, _ := reader.Glob("data", "table_*", reader.CSV)
//	l := &reader.Loader{Decoder: reader.CSVDecoder{}, Concurrency: 8}
//	tables, err := l.Load(ctx, paths, []string{"A", "I", "P"})
//
// KeyResolver picks the key table among the files matching the key pattern;
// the first path in lexicographic order wins.
package reader
