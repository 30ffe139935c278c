// internal/records/csv.go
package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/config"
)

// channel record field order
const (
	fNumber = iota
	fAddress
	fDataType
	fDeviceID
	fValue
	fLow
	fHigh
	fOffset
	fDigits
	fRed
	fGreen
	fBlue
	fFormula
	fUnit
	fName
	channelFields
)

// math record field order
const (
	mName = iota
	mFormula
	mUnit
	mDigits
	mEnabled
	mathFields
)

// CSVStore keeps one channel record per line, keyed by channel number,
// plus an optional math channel file. Files carry no header.
type CSVStore struct {
	Path     string
	MathPath string // empty disables math channels

	mu sync.Mutex
}

func NewCSVStore(path, mathPath string) *CSVStore {
	return &CSVStore{Path: path, MathPath: mathPath}
}

func (s *CSVStore) Load(ctx context.Context) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.read()
	if err != nil {
		return Set{}, err
	}
	if err := checkEdit(set); err != nil {
		return Set{}, err
	}
	return finish(set), nil
}

func (s *CSVStore) PutChannel(ctx context.Context, ch config.ChannelConfig) error {
	return s.edit(ctx, func(set Set) (Set, error) { return putChannel(set, ch), nil })
}

func (s *CSVStore) DeleteChannel(ctx context.Context, number int) error {
	return s.edit(ctx, func(set Set) (Set, error) { return deleteChannel(set, number) })
}

func (s *CSVStore) PutMath(ctx context.Context, m config.MathChannelConfig) error {
	if s.MathPath == "" {
		return errors.New("records csv: no math channel file configured")
	}
	return s.edit(ctx, func(set Set) (Set, error) { return putMath(set, m), nil })
}

func (s *CSVStore) DeleteMath(ctx context.Context, name string) error {
	return s.edit(ctx, func(set Set) (Set, error) { return deleteMath(set, name) })
}

// UpdateValues stores the last published value of each channel.
// Unknown channel numbers are ignored.
func (s *CSVStore) UpdateValues(ctx context.Context, values map[int]float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.read()
	if err != nil {
		return err
	}
	for i := range set.Channels {
		if v, ok := values[set.Channels[i].Number]; ok {
			set.Channels[i].Value = v
		}
	}
	return writeFile(s.Path, encodeChannels(set.Channels))
}

func (s *CSVStore) edit(ctx context.Context, fn func(Set) (Set, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.read()
	if err != nil {
		return err
	}
	next, err := fn(set)
	if err != nil {
		return err
	}
	if err := checkEdit(next); err != nil {
		return err
	}

	if err := writeFile(s.Path, encodeChannels(next.Channels)); err != nil {
		return err
	}
	if s.MathPath != "" {
		return writeFile(s.MathPath, encodeMath(next.Math))
	}
	return nil
}

// ---- file io ----

func (s *CSVStore) read() (Set, error) {
	rows, err := readFile(s.Path, channelFields)
	if err != nil {
		return Set{}, err
	}

	var set Set
	for i, row := range rows {
		ch, err := decodeChannel(row)
		if err != nil {
			return Set{}, fmt.Errorf("records csv: %s line %d: %w", s.Path, i+1, err)
		}
		set.Channels = append(set.Channels, ch)
	}

	if s.MathPath == "" {
		return set, nil
	}

	rows, err = readFile(s.MathPath, mathFields)
	if err != nil {
		return Set{}, err
	}
	for i, row := range rows {
		m, err := decodeMath(row)
		if err != nil {
			return Set{}, fmt.Errorf("records csv: %s line %d: %w", s.MathPath, i+1, err)
		}
		set.Math = append(set.Math, m)
	}
	return set, nil
}

// readFile returns no rows for a missing file.
func readFile(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("records csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("records csv: %s: %w", path, err)
		}
		rows = append(rows, row)
	}
}

// writeFile replaces path atomically.
func writeFile(path string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("records csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("records csv: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("records csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("records csv: %w", err)
	}
	return nil
}

// ---- record codec ----

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func encodeChannels(chs []config.ChannelConfig) [][]string {
	rows := make([][]string, 0, len(chs))
	for _, ch := range chs {
		row := make([]string, channelFields)
		row[fNumber] = strconv.Itoa(ch.Number)
		row[fAddress] = strconv.Itoa(ch.Address)
		row[fDataType] = string(ch.DataType)
		row[fDeviceID] = strconv.Itoa(int(ch.DeviceID))
		row[fValue] = formatFloat(ch.Value)
		row[fLow] = formatFloat(ch.Low)
		row[fHigh] = formatFloat(ch.High)
		row[fOffset] = formatFloat(ch.Offset)
		row[fDigits] = strconv.Itoa(ch.Digits)
		row[fRed] = strconv.Itoa(int(ch.Color.R))
		row[fGreen] = strconv.Itoa(int(ch.Color.G))
		row[fBlue] = strconv.Itoa(int(ch.Color.B))
		row[fFormula] = ch.Formula
		row[fUnit] = ch.Unit
		row[fName] = ch.Name
		rows = append(rows, row)
	}
	return rows
}

// fieldParser collects the first parse error.
type fieldParser struct {
	row []string
	err error
}

func (p *fieldParser) atoi(i int, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(p.row[i]))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (p *fieldParser) u8(i int, name string) uint8 {
	v, err := strconv.ParseUint(strings.TrimSpace(p.row[i]), 10, 8)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return uint8(v)
}

func (p *fieldParser) num(i int, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.row[i]), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (p *fieldParser) flag(i int, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(p.row[i]))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func decodeChannel(row []string) (config.ChannelConfig, error) {
	p := fieldParser{row: row}
	ch := config.ChannelConfig{
		Number:   p.atoi(fNumber, "number"),
		Address:  p.atoi(fAddress, "address"),
		DataType: codec.DataType(strings.TrimSpace(row[fDataType])),
		DeviceID: p.u8(fDeviceID, "device id"),
		Value:    p.num(fValue, "value"),
		Low:      p.num(fLow, "low"),
		High:     p.num(fHigh, "high"),
		Offset:   p.num(fOffset, "offset"),
		Digits:   p.atoi(fDigits, "digits"),
		Color: config.Color{
			R: p.u8(fRed, "red"),
			G: p.u8(fGreen, "green"),
			B: p.u8(fBlue, "blue"),
		},
		Formula: row[fFormula],
		Unit:    row[fUnit],
		Name:    row[fName],
	}
	return ch, p.err
}

func encodeMath(ms []config.MathChannelConfig) [][]string {
	rows := make([][]string, 0, len(ms))
	for _, m := range ms {
		row := make([]string, mathFields)
		row[mName] = m.Name
		row[mFormula] = m.Formula
		row[mUnit] = m.Unit
		row[mDigits] = strconv.Itoa(m.Digits)
		row[mEnabled] = strconv.FormatBool(m.Enabled)
		rows = append(rows, row)
	}
	return rows
}

func decodeMath(row []string) (config.MathChannelConfig, error) {
	p := fieldParser{row: row}
	m := config.MathChannelConfig{
		Name:    row[mName],
		Formula: row[mFormula],
		Unit:    row[mUnit],
		Digits:  p.atoi(mDigits, "digits"),
		Enabled: p.flag(mEnabled, "enabled"),
	}
	return m, p.err
}
