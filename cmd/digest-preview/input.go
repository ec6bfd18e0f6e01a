package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mikey/inbox-digest/internal/adapters/source"
	"github.com/mikey/inbox-digest/internal/core"
)

// readInputs loads records from the named files, or from stdin when none
// are given
func readInputs(paths []string, format string, stdin io.Reader) ([]core.RawRecord, error) {
	if len(paths) == 0 {
		return readRecords(stdin, format)
	}

	var records []core.RawRecord
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		recs, err := readRecords(f, format)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		records = append(records, recs...)
	}
	return records, nil
}

// readRecords reads one RFC 822 message, or a JSON record or array of records
func readRecords(r io.Reader, format string) ([]core.RawRecord, error) {
	br := bufio.NewReader(r)
	if format == "" || format == "auto" {
		format = sniffFormat(br)
	}

	switch format {
	case "json":
		return decodeJSONRecords(br)
	case "rfc822", "eml":
		rec, err := source.ParseMessage(br)
		if err != nil {
			return nil, err
		}
		return []core.RawRecord{rec}, nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}

func sniffFormat(br *bufio.Reader) string {
	for i := 1; ; i++ {
		peek, err := br.Peek(i)
		if len(peek) < i {
			return "rfc822"
		}
		switch c := peek[i-1]; c {
		case ' ', '\t', '\r', '\n':
			if err != nil {
				return "rfc822"
			}
			continue
		case '[', '{':
			return "json"
		default:
			return "rfc822"
		}
	}
}

func decodeJSONRecords(r io.Reader) ([]core.RawRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if len(data) > 0 && data[0] == '{' {
		var rec core.RawRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("invalid JSON record: %w", err)
		}
		return []core.RawRecord{rec}, nil
	}

	var records []core.RawRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("invalid JSON records: %w", err)
	}
	return records, nil
}
