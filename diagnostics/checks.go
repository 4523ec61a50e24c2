package diagnostics

import "floorwatch/fleet"

// ResultStatus is the outcome of a single check.
type ResultStatus string

// Check outcomes
const (
	Passed  ResultStatus = "passed"
	Warning ResultStatus = "warning"
	Failed  ResultStatus = "failed"
)

// Result is one line of the diagnostics report.
type Result struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Status  ResultStatus `json:"status"`
	Message string       `json:"message"`
}

// Thresholds applied by the checks.
const (
	OptimalPerformance = 80
	SafeTemperature    = 50
)

// Checks evaluates the five diagnostics against a machine snapshot. No
// device is contacted.
func Checks(m fleet.Machine) []Result {
	results := []Result{
		{ID: 1, Name: "Connection Test", Status: Passed, Message: "Machine is online and responsive"},
		{ID: 2, Name: "Hardware Check", Status: Passed, Message: "All hardware components functioning properly"},
		{ID: 3, Name: "Performance Analysis", Status: Passed, Message: "Performance within optimal range"},
		{ID: 4, Name: "Temperature Monitoring", Status: Passed, Message: "Temperature within safe range"},
		{ID: 5, Name: "System Integrity", Status: Passed, Message: "System integrity verified"},
	}
	if !m.Healthy() {
		results[1].Status = Warning
		results[1].Message = "Minor hardware issues detected"
	}
	if m.Performance <= OptimalPerformance {
		results[2].Status = Warning
		results[2].Message = "Performance below optimal levels"
	}
	if m.Temperature >= SafeTemperature {
		results[3].Status = Warning
		results[3].Message = "Temperature approaching critical levels"
	}
	if m.Status == fleet.StatusError {
		results[4].Status = Failed
		results[4].Message = "System errors detected"
	}
	return results
}

// Summary counts results by outcome.
func Summary(results []Result) (passed, warnings, failed int) {
	for _, r := range results {
		switch r.Status {
		case Passed:
			passed++
		case Warning:
			warnings++
		case Failed:
			failed++
		}
	}
	return
}

// Recommendation is a follow-up offered alongside the results. Only
// recommendations with an Action are wired to a control command.
type Recommendation struct {
	Name   string       `json:"name"`
	Action fleet.Action `json:"action,omitempty"`
}

// Recommendations lists the follow-ups shown with every report.
var Recommendations = []Recommendation{
	{Name: "Restart Machine", Action: fleet.ActionRestart},
	{Name: "Clear Cache"},
	{Name: "Optimize Performance"},
	{Name: "Reconnect Network"},
}
