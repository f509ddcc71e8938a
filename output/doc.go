// Package output renders tables for people and for other tools.
//
// Three formatters implement the Formatter interface:
//
//   - table: an aligned text table (tablewriter), the default
//   - csv: header row then one record per row, nulls as empty cells
//   - json: JSON Lines, one object per row with keys in column order
//
// Example:
//
//	f, err := output.New("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := f.Format(result.Summary.Table()); err != nil {
//	    log.Fatal(err)
//	}
package output
