package fleet

import "time"

// Seed returns the hard-coded fleet loaded at start-up.
func Seed(now time.Time) []Machine {
	ts := FormatTimestamp(now)
	return []Machine{
		{
			ID: 1, Name: "CNC Machine #1", Type: "CNC", Location: "Production Line A",
			Status: StatusRunning, Performance: 85, Temperature: 42, Uptime: 95.2,
			Errors: []string{}, LastMaintenance: "2024-01-15", LastUpdate: ts,
		},
		{
			ID: 2, Name: "3D Printer #2", Type: "3D Printer", Location: "R&D Lab",
			Status: StatusIdle, Performance: 92, Temperature: 38, Uptime: 88.7,
			Errors: []string{"Low filament"}, LastMaintenance: "2024-01-10", LastUpdate: ts,
		},
		{
			ID: 3, Name: "Assembly Robot #1", Type: "Robot Arm", Location: "Assembly Line B",
			Status: StatusMaintenance, Performance: 0, Temperature: 28, Uptime: 76.4,
			Errors: []string{"Calibration needed"}, LastMaintenance: "2024-01-20", LastUpdate: ts,
		},
		{
			ID: 4, Name: "Packaging Machine #3", Type: "Packaging", Location: "Packaging Area",
			Status: StatusRunning, Performance: 78, Temperature: 45, Uptime: 91.8,
			Errors: []string{}, LastMaintenance: "2024-01-12", LastUpdate: ts,
		},
		{
			ID: 5, Name: "Laser Cutter #1", Type: "Laser Cutter", Location: "Fabrication Area",
			Status: StatusRunning, Performance: 91, Temperature: 39, Uptime: 93.5,
			Errors: []string{}, LastMaintenance: "2024-01-18", LastUpdate: ts,
		},
		{
			ID: 6, Name: "Injection Molder #2", Type: "Injection Molder", Location: "Production Line C",
			Status: StatusIdle, Performance: 0, Temperature: 32, Uptime: 82.1,
			Errors: []string{"Heater malfunction"}, LastMaintenance: "2024-01-05", LastUpdate: ts,
		},
	}
}
