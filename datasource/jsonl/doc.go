// Package jsonl decodes JSON Lines files. This decoder uses https://github.com/tidwall/gjson to process data, and supports column names formatted as gjson paths.
package jsonl
