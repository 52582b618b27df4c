package stops

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Column names of the attribute CSV.
const (
	ColID           = "stop_id"
	ColName         = "stop_name"
	ColLat          = "stop_lat"
	ColLon          = "stop_lon"
	ColRenterShare  = "renter_occupied_share"
	ColVehicleShare = "vehicle_share"
	ColPovertyShare = "poverty_under_200_share"

	nearPrefix = "near_"
)

var requiredColumns = []string{ColID, ColLat, ColLon}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stop table: %w", err)
	}
	defer f.Close()

	return LoadCSV(f)
}

// LoadCSV parses a header-first CSV into a Table.
//
// Required columns: stop_id, stop_lat, stop_lon. Demographic share columns
// default to 0 when absent or blank. Every column starting with "near_" is read
// as a boolean flag ("1", "true", "t", "yes" are true).
func LoadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading stop table header: %w", err)
	}
	headerMap := make(map[string]int, len(header))
	for i, h := range header {
		headerMap[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	var flags []string
	for name := range headerMap {
		if strings.HasPrefix(name, nearPrefix) {
			flags = append(flags, name)
		}
	}

	var rows []Stop
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading stop table line %d: %w", line+1, err)
		}
		line++

		s, err := parseStop(record, headerMap, flags)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, s)
	}

	return NewTable(rows)
}

func parseStop(record []string, headerMap map[string]int, flags []string) (Stop, error) {
	s := Stop{
		ID:   field(record, headerMap, ColID),
		Name: field(record, headerMap, ColName),
		Near: make(map[string]bool, len(flags)),
	}

	var err error
	if s.Lat, err = parseFloat(record, headerMap, ColLat, true); err != nil {
		return s, err
	}
	if s.Lon, err = parseFloat(record, headerMap, ColLon, true); err != nil {
		return s, err
	}
	if s.RenterShare, err = parseFloat(record, headerMap, ColRenterShare, false); err != nil {
		return s, err
	}
	if s.VehicleShare, err = parseFloat(record, headerMap, ColVehicleShare, false); err != nil {
		return s, err
	}
	if s.PovertyShare, err = parseFloat(record, headerMap, ColPovertyShare, false); err != nil {
		return s, err
	}
	for _, flag := range flags {
		switch strings.ToLower(field(record, headerMap, flag)) {
		case "1", "true", "t", "yes":
			s.Near[flag] = true
		}
	}

	return s, nil
}

func field(record []string, headerMap map[string]int, col string) string {
	i, ok := headerMap[col]
	if !ok || i >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[i])
}

func parseFloat(record []string, headerMap map[string]int, col string, required bool) (float64, error) {
	raw := field(record, headerMap, col)
	if raw == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is empty", ErrBadValue, col)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadValue, col, raw)
	}

	return v, nil
}

// WriteCSVFile writes t to path with WriteCSV.
func WriteCSVFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stop table: %w", err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// WriteCSV writes t in the layout LoadCSV reads: the fixed columns, then every
// near_ flag any stop carries, sorted. Rows follow t.IDs().
func WriteCSV(w io.Writer, t *Table) error {
	flagSet := make(map[string]struct{})
	for _, id := range t.ids {
		for flag := range t.byID[id].Near {
			flagSet[flag] = struct{}{}
		}
	}
	flags := make([]string, 0, len(flagSet))
	for flag := range flagSet {
		flags = append(flags, flag)
	}
	sort.Strings(flags)

	cw := csv.NewWriter(w)
	header := []string{ColID, ColName, ColLat, ColLon, ColRenterShare, ColVehicleShare, ColPovertyShare}
	if err := cw.Write(append(header, flags...)); err != nil {
		return fmt.Errorf("writing stop table header: %w", err)
	}
	for _, id := range t.ids {
		s := t.byID[id]
		record := []string{
			s.ID,
			s.Name,
			formatFloat(s.Lat),
			formatFloat(s.Lon),
			formatFloat(s.RenterShare),
			formatFloat(s.VehicleShare),
			formatFloat(s.PovertyShare),
		}
		for _, flag := range flags {
			v := "0"
			if s.Near[flag] {
				v = "1"
			}
			record = append(record, v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing stop %s: %w", id, err)
		}
	}
	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
