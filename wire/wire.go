/*
Package wire defines the JSON shapes exchanged with the persistent store.

PURPOSE:
  These types decouple the billing domain model from the external contract.
  Field names are camelCase; timestamps travel as ISO-8601 strings; money
  travels as JSON numbers. Conversions in both directions live here so the
  server and the client agree on one codec.

NAMING CONVENTION:
  - Category, Location, Interpreter, Assignment: record shapes
  - *Request / *Response: endpoint bodies

DECODING:
  Decode* functions reject records the engine cannot use (unparseable
  timestamps, missing ids, end not after start) with a MalformedRecordError.
  Nothing is coerced.

SEE ALSO:
  - api/handlers.go: server side
  - remote/client.go: client side
*/
package wire

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/interpreter-billing/billing"
)

// =============================================================================
// RECORD SHAPES
// =============================================================================

// Category is a category record or snapshot.
type Category struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourlyRate"`
	MinuteRate float64 `json:"minuteRate"`
	TravelCost float64 `json:"travelCost"`
}

// Location is a location record or snapshot. Coordinates are [longitude, latitude].
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Coordinates []float64 `json:"coordinates"`
	VisitCount  int       `json:"visitCount"`
}

// Interpreter is an interpreter record or snapshot.
type Interpreter struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone,omitempty"`
	Languages       []string `json:"languages,omitempty"`
	AssignmentCount int      `json:"assignmentCount,omitempty"`
}

// Assignment carries its location, category and interpreter snapshots inline.
type Assignment struct {
	ID             string       `json:"id"`
	ClientName     string       `json:"clientName"`
	Location       Location     `json:"location"`
	Category       Category     `json:"category"`
	StartTime      string       `json:"startTime"`
	EndTime        string       `json:"endTime"`
	Interpreter    *Interpreter `json:"interpreter,omitempty"`
	Language       string       `json:"language,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	Paid           bool         `json:"paid"`
	TravelDistance float64      `json:"travelDistance,omitempty"`
}

// =============================================================================
// REQUEST / RESPONSE BODIES
// =============================================================================

// SaveResponse answers POST /assignments.
type SaveResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

// PaymentStatusRequest is the body of POST /assignments/payment-status.
type PaymentStatusRequest struct {
	ID   string `json:"id"`
	Paid bool   `json:"paid"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind,omitempty"`
	BlockingCount *int   `json:"blockingCount,omitempty"`
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

// TimeLayout is used for every timestamp written to the wire.
const TimeLayout = time.RFC3339Nano

// sqlLayouts are accepted on read for stores that hand back DATETIME text.
var sqlLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// FormatTime renders t as ISO-8601, keeping its zone offset.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime accepts RFC 3339 (fractional seconds optional) or the SQL
// "YYYY-MM-DD HH:MM:SS" form. Zone-less forms are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range sqlLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseDate accepts a calendar date "YYYY-MM-DD" or any ParseTime form.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err == nil {
		return t, nil
	}
	return ParseTime(s)
}

// =============================================================================
// ENCODE - billing -> wire
// =============================================================================

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// FromCategory encodes a category.
func FromCategory(c billing.Category) Category {
	return Category{
		ID:         c.ID,
		Name:       c.Name,
		HourlyRate: money(c.HourlyRate),
		MinuteRate: money(c.MinuteRate),
		TravelCost: money(c.TravelCost),
	}
}

func fromCategoryRef(c billing.CategoryRef) Category {
	return Category{
		ID:         c.ID,
		Name:       c.Name,
		HourlyRate: money(c.HourlyRate),
		MinuteRate: money(c.MinuteRate),
		TravelCost: money(c.TravelCost),
	}
}

func coords(c billing.Coordinates) []float64 {
	return []float64{c.Longitude, c.Latitude}
}

// FromLocation encodes a location; coordinates become [lon, lat].
func FromLocation(l billing.Location) Location {
	return Location{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: coords(l.Coordinates),
		VisitCount:  l.VisitCount,
	}
}

func fromLocationRef(l billing.LocationRef) Location {
	return Location{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: coords(l.Coordinates),
		VisitCount:  l.VisitCount,
	}
}

// FromInterpreter encodes an interpreter with its assignment count.
func FromInterpreter(in billing.Interpreter) Interpreter {
	return Interpreter{
		ID:              in.ID,
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		Languages:       in.Languages,
		AssignmentCount: in.AssignmentCount,
	}
}

// FromAssignment encodes a, snapshots included, verbatim.
func FromAssignment(a billing.Assignment) Assignment {
	out := Assignment{
		ID:             a.ID,
		ClientName:     a.ClientName,
		Location:       fromLocationRef(a.Location),
		Category:       fromCategoryRef(a.Category),
		StartTime:      FormatTime(a.StartTime),
		EndTime:        FormatTime(a.EndTime),
		Language:       a.Language,
		Notes:          a.Notes,
		Paid:           a.Paid,
		TravelDistance: money(a.TravelDistance),
	}
	if a.Interpreter != nil {
		out.Interpreter = &Interpreter{
			ID:        a.Interpreter.ID,
			Name:      a.Interpreter.Name,
			Email:     a.Interpreter.Email,
			Phone:     a.Interpreter.Phone,
			Languages: a.Interpreter.Languages,
		}
	}
	return out
}

// =============================================================================
// DECODE - wire -> billing
// =============================================================================

func malformed(c billing.Collection, id, field string, err error) error {
	return &billing.MalformedRecordError{Collection: c, ID: id, Field: field, Err: err}
}

var errEmpty = errors.New("required")

func decodeCoords(c billing.Collection, id string, xs []float64) (billing.Coordinates, error) {
	switch len(xs) {
	case 0:
		return billing.Coordinates{}, nil
	case 2:
		return billing.Coordinates{Longitude: xs[0], Latitude: xs[1]}, nil
	default:
		return billing.Coordinates{}, malformed(c, id, "coordinates",
			fmt.Errorf("want [longitude, latitude], got %d values", len(xs)))
	}
}

// DecodeCategory converts a category record. The minute rate is re-derived
// from the hourly rate.
func DecodeCategory(c Category) (billing.Category, error) {
	if c.ID == "" {
		return billing.Category{}, malformed(billing.CollectionCategories, "", "id", errEmpty)
	}
	return billing.NewCategory(c.ID, c.Name,
		decimal.NewFromFloat(c.HourlyRate), decimal.NewFromFloat(c.TravelCost)), nil
}

// DecodeLocation converts a location record.
func DecodeLocation(l Location) (billing.Location, error) {
	if l.ID == "" {
		return billing.Location{}, malformed(billing.CollectionLocations, "", "id", errEmpty)
	}
	xy, err := decodeCoords(billing.CollectionLocations, l.ID, l.Coordinates)
	if err != nil {
		return billing.Location{}, err
	}
	return billing.Location{
		ID:          l.ID,
		Name:        l.Name,
		Address:     l.Address,
		Coordinates: xy,
		VisitCount:  l.VisitCount,
	}, nil
}

// DecodeInterpreter converts an interpreter record.
func DecodeInterpreter(in Interpreter) (billing.Interpreter, error) {
	if in.ID == "" {
		return billing.Interpreter{}, malformed(billing.CollectionInterpreters, "", "id", errEmpty)
	}
	return billing.Interpreter{
		ID:              in.ID,
		Name:            in.Name,
		Email:           in.Email,
		Phone:           in.Phone,
		Languages:       in.Languages,
		AssignmentCount: in.AssignmentCount,
	}, nil
}

// DecodeAssignment converts an assignment record, snapshots verbatim
// (the snapshot minute rate is kept as sent, not re-derived).
func DecodeAssignment(a Assignment) (billing.Assignment, error) {
	const c = billing.CollectionAssignments
	switch {
	case a.ID == "":
		return billing.Assignment{}, malformed(c, "", "id", errEmpty)
	case a.Location.ID == "":
		return billing.Assignment{}, malformed(c, a.ID, "location.id", errEmpty)
	case a.Category.ID == "":
		return billing.Assignment{}, malformed(c, a.ID, "category.id", errEmpty)
	}
	start, err := ParseTime(a.StartTime)
	if err != nil {
		return billing.Assignment{}, malformed(c, a.ID, "startTime", err)
	}
	end, err := ParseTime(a.EndTime)
	if err != nil {
		return billing.Assignment{}, malformed(c, a.ID, "endTime", err)
	}
	if !end.After(start) {
		return billing.Assignment{}, &billing.InvalidRangeError{Start: start, End: end}
	}
	xy, err := decodeCoords(c, a.ID, a.Location.Coordinates)
	if err != nil {
		return billing.Assignment{}, err
	}

	out := billing.Assignment{
		ID:         a.ID,
		ClientName: a.ClientName,
		Location: billing.LocationRef{
			ID:          a.Location.ID,
			Name:        a.Location.Name,
			Address:     a.Location.Address,
			Coordinates: xy,
			VisitCount:  a.Location.VisitCount,
		},
		Category: billing.CategoryRef{
			ID:         a.Category.ID,
			Name:       a.Category.Name,
			HourlyRate: decimal.NewFromFloat(a.Category.HourlyRate),
			MinuteRate: decimal.NewFromFloat(a.Category.MinuteRate),
			TravelCost: decimal.NewFromFloat(a.Category.TravelCost),
		},
		StartTime:      start,
		EndTime:        end,
		Language:       a.Language,
		Notes:          a.Notes,
		Paid:           a.Paid,
		TravelDistance: decimal.NewFromFloat(a.TravelDistance),
	}
	if a.Interpreter != nil && a.Interpreter.ID != "" {
		out.Interpreter = &billing.InterpreterRef{
			ID:        a.Interpreter.ID,
			Name:      a.Interpreter.Name,
			Email:     a.Interpreter.Email,
			Phone:     a.Interpreter.Phone,
			Languages: a.Interpreter.Languages,
		}
	}
	return out, nil
}

// =============================================================================
// COLLECTIONS
// =============================================================================

func decodeAll[W, B any](in []W, decode func(W) (B, error)) ([]B, error) {
	out := make([]B, 0, len(in))
	for _, w := range in {
		b, err := decode(w)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func encodeAll[B, W any](in []B, encode func(B) W) []W {
	out := make([]W, 0, len(in))
	for _, b := range in {
		out = append(out, encode(b))
	}
	return out
}

// DecodeCategories fails on the first malformed record.
func DecodeCategories(in []Category) ([]billing.Category, error) {
	return decodeAll(in, DecodeCategory)
}

// DecodeLocations converts a list, failing on the first bad record.
func DecodeLocations(in []Location) ([]billing.Location, error) {
	return decodeAll(in, DecodeLocation)
}

// DecodeInterpreters converts a list, failing on the first bad record.
func DecodeInterpreters(in []Interpreter) ([]billing.Interpreter, error) {
	return decodeAll(in, DecodeInterpreter)
}

// DecodeAssignments converts a list, failing on the first bad record.
func DecodeAssignments(in []Assignment) ([]billing.Assignment, error) {
	return decodeAll(in, DecodeAssignment)
}

// FromCategories encodes a list of categories.
func FromCategories(in []billing.Category) []Category {
	return encodeAll(in, FromCategory)
}

// FromLocations encodes a list of locations.
func FromLocations(in []billing.Location) []Location {
	return encodeAll(in, FromLocation)
}

// FromInterpreters encodes a list of interpreters.
func FromInterpreters(in []billing.Interpreter) []Interpreter {
	return encodeAll(in, FromInterpreter)
}

// FromAssignments encodes a list of assignments.
func FromAssignments(in []billing.Assignment) []Assignment {
	return encodeAll(in, FromAssignment)
}
