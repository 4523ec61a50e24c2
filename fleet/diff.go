package fleet

import "slices"

// ChangedFields lists the JSON names of fields that differ between two
// versions of a machine record, in declaration order.
func ChangedFields(before, after Machine) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	add("id", before.ID != after.ID)
	add("name", before.Name != after.Name)
	add("type", before.Type != after.Type)
	add("location", before.Location != after.Location)
	add("status", before.Status != after.Status)
	add("performance", before.Performance != after.Performance)
	add("temperature", before.Temperature != after.Temperature)
	add("uptime", before.Uptime != after.Uptime)
	add("errors", !slices.Equal(before.Errors, after.Errors))
	add("lastMaintenance", before.LastMaintenance != after.LastMaintenance)
	add("lastUpdate", before.LastUpdate != after.LastUpdate)
	return changed
}
