package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/interpreter-billing/billing"
)

// timeLayout is fixed width so start_time sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeLanguages(langs []string) (string, error) {
	if langs == nil {
		langs = []string{}
	}
	b, err := json.Marshal(langs)
	if err != nil {
		return "", fmt.Errorf("encode languages: %w", err)
	}
	return string(b), nil
}

func decodeLanguages(s string) ([]string, error) {
	var out []string
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// =============================================================================
// ROWS
// =============================================================================

var categoryColumns = []string{"id", "name", "hourly_rate", "minute_rate", "travel_cost"}

type categoryRow struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	HourlyRate decimal.Decimal `db:"hourly_rate"`
	MinuteRate decimal.Decimal `db:"minute_rate"`
	TravelCost decimal.Decimal `db:"travel_cost"`
}

func (r categoryRow) toCategory() billing.Category {
	return billing.Category{
		ID:         r.ID,
		Name:       r.Name,
		HourlyRate: r.HourlyRate,
		MinuteRate: r.MinuteRate,
		TravelCost: r.TravelCost,
	}
}

var locationColumns = []string{"id", "name", "address", "longitude", "latitude", "visit_count"}

type locationRow struct {
	ID         string  `db:"id"`
	Name       string  `db:"name"`
	Address    string  `db:"address"`
	Longitude  float64 `db:"longitude"`
	Latitude   float64 `db:"latitude"`
	VisitCount int     `db:"visit_count"`
}

func (r locationRow) toLocation() billing.Location {
	return billing.Location{
		ID:          r.ID,
		Name:        r.Name,
		Address:     r.Address,
		Coordinates: billing.Coordinates{Longitude: r.Longitude, Latitude: r.Latitude},
		VisitCount:  r.VisitCount,
	}
}

var interpreterColumns = []string{"id", "name", "email", "phone", "languages_json"}

type interpreterRow struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	Phone     string `db:"phone"`
	Languages string `db:"languages_json"`
}

func (r interpreterRow) toInterpreter() (billing.Interpreter, error) {
	langs, err := decodeLanguages(r.Languages)
	if err != nil {
		return billing.Interpreter{}, &billing.MalformedRecordError{
			Collection: billing.CollectionInterpreters, ID: r.ID, Field: "languages", Err: err}
	}
	return billing.Interpreter{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Languages: langs,
	}, nil
}

// assignmentColumns lists id first; SaveAssignment relies on that.
var assignmentColumns = []string{
	"id", "client_name", "start_time", "end_time", "language", "notes", "paid", "travel_distance",
	"location_id", "location_name", "location_address",
	"location_longitude", "location_latitude", "location_visit_count",
	"category_id", "category_name", "category_hourly_rate", "category_minute_rate", "category_travel_cost",
	"interpreter_id", "interpreter_name", "interpreter_email", "interpreter_phone", "interpreter_languages_json",
}

type assignmentRow struct {
	ID             string          `db:"id"`
	ClientName     string          `db:"client_name"`
	StartTime      string          `db:"start_time"`
	EndTime        string          `db:"end_time"`
	Language       string          `db:"language"`
	Notes          string          `db:"notes"`
	Paid           bool            `db:"paid"`
	TravelDistance decimal.Decimal `db:"travel_distance"`

	LocationID         string  `db:"location_id"`
	LocationName       string  `db:"location_name"`
	LocationAddress    string  `db:"location_address"`
	LocationLongitude  float64 `db:"location_longitude"`
	LocationLatitude   float64 `db:"location_latitude"`
	LocationVisitCount int     `db:"location_visit_count"`

	CategoryID         string          `db:"category_id"`
	CategoryName       string          `db:"category_name"`
	CategoryHourlyRate decimal.Decimal `db:"category_hourly_rate"`
	CategoryMinuteRate decimal.Decimal `db:"category_minute_rate"`
	CategoryTravelCost decimal.Decimal `db:"category_travel_cost"`

	InterpreterID        sql.NullString `db:"interpreter_id"`
	InterpreterName      string         `db:"interpreter_name"`
	InterpreterEmail     string         `db:"interpreter_email"`
	InterpreterPhone     string         `db:"interpreter_phone"`
	InterpreterLanguages string         `db:"interpreter_languages_json"`
}

// values returns the column values in assignmentColumns order.
func (r assignmentRow) values() []any {
	var interpreterID any
	if r.InterpreterID.Valid {
		interpreterID = r.InterpreterID.String
	}
	return []any{
		r.ID, r.ClientName, r.StartTime, r.EndTime, r.Language, r.Notes, r.Paid, r.TravelDistance.String(),
		r.LocationID, r.LocationName, r.LocationAddress,
		r.LocationLongitude, r.LocationLatitude, r.LocationVisitCount,
		r.CategoryID, r.CategoryName,
		r.CategoryHourlyRate.String(), r.CategoryMinuteRate.String(), r.CategoryTravelCost.String(),
		interpreterID, r.InterpreterName, r.InterpreterEmail, r.InterpreterPhone, r.InterpreterLanguages,
	}
}

func assignmentToRow(a billing.Assignment) (assignmentRow, error) {
	r := assignmentRow{
		ID:             a.ID,
		ClientName:     a.ClientName,
		StartTime:      formatTime(a.StartTime),
		EndTime:        formatTime(a.EndTime),
		Language:       a.Language,
		Notes:          a.Notes,
		Paid:           a.Paid,
		TravelDistance: a.TravelDistance,

		LocationID:         a.Location.ID,
		LocationName:       a.Location.Name,
		LocationAddress:    a.Location.Address,
		LocationLongitude:  a.Location.Coordinates.Longitude,
		LocationLatitude:   a.Location.Coordinates.Latitude,
		LocationVisitCount: a.Location.VisitCount,

		CategoryID:         a.Category.ID,
		CategoryName:       a.Category.Name,
		CategoryHourlyRate: a.Category.HourlyRate,
		CategoryMinuteRate: a.Category.MinuteRate,
		CategoryTravelCost: a.Category.TravelCost,

		InterpreterLanguages: "[]",
	}
	if in := a.Interpreter; in != nil {
		langs, err := encodeLanguages(in.Languages)
		if err != nil {
			return assignmentRow{}, err
		}
		r.InterpreterID = sql.NullString{String: in.ID, Valid: true}
		r.InterpreterName = in.Name
		r.InterpreterEmail = in.Email
		r.InterpreterPhone = in.Phone
		r.InterpreterLanguages = langs
	}
	return r, nil
}

func (r assignmentRow) toAssignment() (billing.Assignment, error) {
	bad := func(field string, err error) error {
		return &billing.MalformedRecordError{Collection: billing.CollectionAssignments, ID: r.ID, Field: field, Err: err}
	}
	start, err := parseTime(r.StartTime)
	if err != nil {
		return billing.Assignment{}, bad("startTime", err)
	}
	end, err := parseTime(r.EndTime)
	if err != nil {
		return billing.Assignment{}, bad("endTime", err)
	}

	a := billing.Assignment{
		ID:         r.ID,
		ClientName: r.ClientName,
		Location: billing.LocationRef{
			ID:          r.LocationID,
			Name:        r.LocationName,
			Address:     r.LocationAddress,
			Coordinates: billing.Coordinates{Longitude: r.LocationLongitude, Latitude: r.LocationLatitude},
			VisitCount:  r.LocationVisitCount,
		},
		Category: billing.CategoryRef{
			ID:         r.CategoryID,
			Name:       r.CategoryName,
			HourlyRate: r.CategoryHourlyRate,
			MinuteRate: r.CategoryMinuteRate,
			TravelCost: r.CategoryTravelCost,
		},
		StartTime:      start,
		EndTime:        end,
		Language:       r.Language,
		Notes:          r.Notes,
		Paid:           r.Paid,
		TravelDistance: r.TravelDistance,
	}
	if r.InterpreterID.Valid {
		langs, err := decodeLanguages(r.InterpreterLanguages)
		if err != nil {
			return billing.Assignment{}, bad("interpreter.languages", err)
		}
		a.Interpreter = &billing.InterpreterRef{
			ID:        r.InterpreterID.String,
			Name:      r.InterpreterName,
			Email:     r.InterpreterEmail,
			Phone:     r.InterpreterPhone,
			Languages: langs,
		}
	}
	return a, nil
}
