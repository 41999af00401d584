package db

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"time"
)

const (
	ChannelSheet = "m_streamer"
	StreamSheet  = "t_stream"

	rawInput = "RAW"
	// Columns C..I of the stream sheet: everything after the key.
	streamUpdateRange = "%v!C%d:I%d"
)

// Sheets stores the roster and streams in a Google spreadsheet. Both sheets
// carry a header row; rows are addressed positionally but matched by key.
type Sheets struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetId string
	timeout       time.Duration
}

func NewSheets(ctx context.Context, spreadsheetId string, opts ...option.ClientOption) (*Sheets, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create sheets service")
	}
	return &Sheets{
		values:        service.Spreadsheets.Values,
		spreadsheetId: spreadsheetId,
		timeout:       defaultTimeout,
	}, nil
}

func (s *Sheets) ListChannels(ctx context.Context) ([]Channel, error) {
	rows, err := s.rows(ctx, ChannelSheet)
	if err != nil {
		return nil, err
	}
	channels := make([]Channel, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, Channel{
			Name:      cell(row, 0),
			Platform:  cell(row, 1),
			Handle:    cell(row, 2),
			ChannelId: cell(row, 3),
			URL:       cell(row, 4),
		})
	}
	return channels, nil
}

func (s *Sheets) SnapshotStreams(ctx context.Context) ([]Stream, error) {
	rows, err := s.rows(ctx, StreamSheet)
	if err != nil {
		return nil, err
	}
	streams := make([]Stream, 0, len(rows))
	for _, row := range rows {
		streams = append(streams, streamFromRow(row))
	}
	return streams, nil
}

func (s *Sheets) Append(ctx context.Context, stream Stream) error {
	row := []interface{}{
		stream.Platform,
		stream.StreamId,
		stream.Title,
		stream.ChannelId,
		stream.ChannelTitle,
		stream.CreatedAt,
		stream.ScheduledAt,
		stream.Status,
		stream.URL,
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.values.
		Append(s.spreadsheetId, StreamSheet, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return wrapWrite(err, "error during appending stream %v", stream.StreamId)
	}
	return nil
}

// Update rewrites columns C..I of the row matching key, carrying the stored
// createdAt over unchanged.
func (s *Sheets) Update(ctx context.Context, key StreamKey, u StreamUpdate) error {
	rows, err := s.rows(ctx, StreamSheet)
	if err != nil {
		return wrapWrite(err, "cannot locate stream %v", key.StreamId)
	}
	index := -1
	var current Stream
	for i, row := range rows {
		st := streamFromRow(row)
		if st.Key() == key {
			index = i
			current = st
			break
		}
	}
	if index < 0 {
		return wrapWrite(ErrNotFound, "cannot update stream %v/%v", key.Platform, key.StreamId)
	}
	updated := u.apply(current)
	// +1 for the header, +1 because sheet rows are 1-based.
	rowNumber := index + 2
	values := []interface{}{
		updated.Title,
		updated.ChannelId,
		updated.ChannelTitle,
		updated.CreatedAt,
		updated.ScheduledAt,
		updated.Status,
		updated.URL,
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.values.
		Update(s.spreadsheetId, fmt.Sprintf(streamUpdateRange, StreamSheet, rowNumber, rowNumber), &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption(rawInput).
		Context(ctx).
		Do()
	if err != nil {
		return wrapWrite(err, "error during updating stream %v", key.StreamId)
	}
	return nil
}

// rows returns the data rows of sheet, header excluded.
func (s *Sheets) rows(ctx context.Context, sheet string) ([][]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	response, err := s.values.Get(s.spreadsheetId, sheet).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "error during reading sheet %v", sheet)
	}
	if len(response.Values) <= 1 {
		return nil, nil
	}
	return response.Values[1:], nil
}

func streamFromRow(row []interface{}) Stream {
	return Stream{
		Platform:     cell(row, 0),
		StreamId:     cell(row, 1),
		Title:        cell(row, 2),
		ChannelId:    cell(row, 3),
		ChannelTitle: cell(row, 4),
		CreatedAt:    cell(row, 5),
		ScheduledAt:  cell(row, 6),
		Status:       cell(row, 7),
		URL:          cell(row, 8),
	}
}

// Trailing empty cells are omitted by the API.
func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprint(row[i])
}
