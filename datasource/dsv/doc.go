// Package dsv decodes delimiter-separated values (CSV, TSV, etc.), one record per line.
package dsv
