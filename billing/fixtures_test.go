package billing_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/interpreter-billing/billing"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

var (
	medical = billing.NewCategory("cat-med", "Medical", dec("90"), dec("0.30"))
	legal   = billing.NewCategory("cat-leg", "Legal", dec("60"), dec("0.25"))

	clinic = billing.Location{ID: "loc-clinic", Name: "Clinic", Address: "1 Main St"}
	court  = billing.Location{ID: "loc-court", Name: "Court", Address: "2 Hill Rd"}

	ana  = billing.Interpreter{ID: "int-ana", Name: "Ana", Languages: []string{"es"}}
	ben  = billing.Interpreter{ID: "int-ben", Name: "Ben", Languages: []string{"fr"}}
	cleo = billing.Interpreter{ID: "int-cleo", Name: "Cleo"}
)

// job builds a valid assignment of the given length in minutes.
func job(id string, cat billing.Category, loc billing.Location, in *billing.Interpreter, start time.Time, minutes int) billing.Assignment {
	a := billing.Assignment{
		ID:         id,
		ClientName: "Client " + id,
		Location:   loc.Ref(),
		Category:   cat.Ref(),
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
	}
	if in != nil {
		a.Interpreter = in.Ref()
	}
	return a
}

// fixture returns reference data and five assignments:
//
//	a1 Ana   Medical Clinic  Mar 3  90min
//	a2 Ana   Legal   Court   Mar 5  60min
//	a3 Ben   Medical Clinic  Mar 7  30min
//	a4 Ben   Medical Court   Mar 9  120min
//	a5 none  Legal   Clinic  Mar 11 45min
func fixture() billing.Snapshot {
	return billing.Snapshot{
		Categories:   []billing.Category{medical, legal},
		Locations:    []billing.Location{clinic, court},
		Interpreters: []billing.Interpreter{ana, ben, cleo},
		Assignments: []billing.Assignment{
			job("a1", medical, clinic, &ana, at(3, 9, 0), 90),
			job("a2", legal, court, &ana, at(5, 10, 0), 60),
			job("a3", medical, clinic, &ben, at(7, 14, 0), 30),
			job("a4", medical, court, &ben, at(9, 8, 0), 120),
			job("a5", legal, clinic, nil, at(11, 16, 0), 45),
		},
	}
}
