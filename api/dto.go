/*
dto.go - API-only request and response types

PURPOSE:
  The billing contract shapes live in the wire package, shared with the
  remote client. This file holds the types only the server speaks: the
  demo scenario endpoints.

SEE ALSO:
  - wire/wire.go: Collection and error shapes
  - scenarios.go: Uses these types
*/
package api

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports what was loaded.
type LoadScenarioResponse struct {
	Status       string `json:"status"`
	Scenario     string `json:"scenario"`
	Assignments  int    `json:"assignments"`
	Interpreters int    `json:"interpreters"`
}
