package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// LoadCSV reads bars from a CSV file with the header
// symbol,time,open,high,low,close,volume. Time is RFC3339 or unix
// seconds. Rows that fail validation or break ordering are dropped and
// counted, not fatal; datasets in the wild always have a few.
func LoadCSV(path string) (bars []Bar, dropped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses bars from r. See LoadCSV for the expected layout.
func ReadCSV(r io.Reader) (bars []Bar, dropped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7

	series := map[string]*Series{}

	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if rec[0] == "symbol" {
				continue
			}
		}

		b, perr := parseRow(rec)
		if perr != nil {
			dropped++
			continue
		}

		s, ok := series[b.Symbol]
		if !ok {
			s = NewSeries(b.Symbol)
			series[b.Symbol] = s
		}
		if ok, _ := s.Append(b); !ok {
			dropped++
		}
	}

	all := make([]*Series, 0, len(series))
	for _, s := range series {
		all = append(all, s)
	}
	return Merge(all...), dropped, nil
}

func parseRow(rec []string) (Bar, error) {
	t, err := parseTime(rec[1])
	if err != nil {
		return Bar{}, err
	}
	vals := make([]float64, 5)
	for i, raw := range rec[2:7] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Bar{}, err
		}
		vals[i] = v
	}
	b := Bar{
		Symbol: rec[0],
		Time:   t.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}
	return b, b.Validate()
}

func parseTime(raw string) (time.Time, error) {
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
