package kinds

import "github.com/JonMunkholm/roster/internal/core"

func Classes() core.Schema {
	return core.Schema{
		Kind:       core.KindClasses,
		Label:      "Classes",
		NaturalKey: "id",
		Fields: []core.FieldSpec{
			idField(),
			{
				Name:     "name",
				Label:    "Name",
				Aliases:  []string{"nom", "nomCours", "class name", "class"},
				Type:     core.FieldText,
				Required: true,
				Example:  "Morning Strength",
			},
			{
				Name:     "instructor",
				Label:    "Instructor",
				Aliases:  []string{"instructeur", "professeur", "coach", "teacher"},
				Type:     core.FieldText,
				Required: true,
				Example:  "Marie Curie",
			},
			{
				Name:     "capacity",
				Label:    "Capacity",
				Aliases:  []string{"capacite", "places", "max participants"},
				Type:     core.FieldPositiveInt,
				Required: true,
				Example:  "20",
			},
			{
				Name:     "day",
				Label:    "Day",
				Aliases:  []string{"jour", "day of week", "weekday"},
				Type:     core.FieldWeekday,
				Required: true,
				Example:  "monday",
				Values:   []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
			},
			{
				Name:     "start_time",
				Label:    "Start Time",
				Aliases:  []string{"heureDebut", "debut", "starts"},
				Type:     core.FieldTime,
				Required: true,
				Example:  "07:00",
			},
			{
				Name:     "end_time",
				Label:    "End Time",
				Aliases:  []string{"heureFin", "fin", "ends"},
				Type:     core.FieldTime,
				Required: true,
				Example:  "08:00",
			},
			{
				Name:    "description",
				Label:   "Description",
				Aliases: []string{"details"},
				Type:    core.FieldText,
				Example: "Full body strength training",
			},
			{
				Name:    "duration",
				Label:   "Duration",
				Aliases: []string{"duree", "minutes", "length"},
				Type:    core.FieldInt,
				Default: core.DefaultTo(60),
				Example: "60",
			},
			{
				Name:    "location",
				Label:   "Location",
				Aliases: []string{"lieu", "salle", "room", "studio"},
				Type:    core.FieldText,
				Default: core.DefaultTo("Main Studio"),
				Example: "Main Studio",
			},
			{
				Name:    "category",
				Label:   "Category",
				Aliases: []string{"categorie", "type"},
				Type:    core.FieldText,
				Default: core.DefaultTo("strength"),
				Example: "strength",
				Values:  []string{"strength", "cardio", "yoga", "pilates", "hiit", "dance", "martial_arts"},
			},
			{
				Name:    "difficulty",
				Label:   "Difficulty",
				Aliases: []string{"difficulte", "niveau", "level"},
				Type:    core.FieldText,
				Default: core.DefaultTo("all_levels"),
				Example: "all_levels",
				Values:  []string{"beginner", "intermediate", "advanced", "all_levels"},
			},
			{
				Name:    "is_active",
				Label:   "Active",
				Aliases: []string{"isActive", "actif", "enabled"},
				Type:    core.FieldBool,
				Default: core.DefaultTo(true),
				Example: "Yes",
			},
		},
	}
}
