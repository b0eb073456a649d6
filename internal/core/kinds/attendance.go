package kinds

import "github.com/JonMunkholm/roster/internal/core"

// Attendance is filtered on check_in_time when exported with a date range.
func Attendance() core.Schema {
	return core.Schema{
		Kind:       core.KindAttendance,
		Label:      "Attendance",
		NaturalKey: "id",
		DateField:  "check_in_time",
		Fields: []core.FieldSpec{
			idField(),
			{
				Name:     "member_id",
				Label:    "Member ID",
				Aliases:  []string{"idMembre", "membre", "member"},
				Type:     core.FieldText,
				Required: true,
				Example:  "6f1c2a4e-8d3b-4c55-9a0e-2b7d9f3e1a10",
			},
			{
				Name:     "check_in_time",
				Label:    "Check In Time",
				Aliases:  []string{"checkIn", "heureArrivee", "arrivee", "check in"},
				Type:     core.FieldDateTime,
				Required: true,
				Example:  "2024-01-15 08:30:00",
			},
			{
				Name:    "check_out_time",
				Label:   "Check Out Time",
				Aliases: []string{"checkOut", "heureDepart", "depart", "check out"},
				Type:    core.FieldDateTime,
				Example: "2024-01-15 09:45:00",
			},
			{
				Name:    "type",
				Label:   "Type",
				Aliases: []string{"typeVisite", "visit type"},
				Type:    core.FieldText,
				Default: core.DefaultTo("regular"),
				Example: "regular",
				Values:  []string{"regular", "class", "personal_training", "guest"},
			},
			notesField(),
		},
	}
}
