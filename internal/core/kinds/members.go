package kinds

import "github.com/JonMunkholm/roster/internal/core"

// Members matches existing rows on email.
func Members() core.Schema {
	plans := make([]string, len(core.Plans))
	for i, p := range core.Plans {
		plans[i] = string(p)
	}

	return core.Schema{
		Kind:       core.KindMembers,
		Label:      "Members",
		NaturalKey: "email",
		Fields: []core.FieldSpec{
			idField(),
			{
				Name:     "first_name",
				Label:    "First Name",
				Aliases:  []string{"prenom", "given name", "forename"},
				Type:     core.FieldText,
				Required: true,
				Example:  "Jean",
			},
			{
				Name:     "last_name",
				Label:    "Last Name",
				Aliases:  []string{"nom", "nomFamille", "surname", "family name"},
				Type:     core.FieldText,
				Required: true,
				Example:  "Dupont",
			},
			{
				Name:     "email",
				Label:    "Email",
				Aliases:  []string{"courriel", "email address", "adresseCourriel", "mail"},
				Type:     core.FieldEmail,
				Required: true,
				Example:  "jean.dupont@example.com",
			},
			{
				Name:     "membership_type",
				Label:    "Membership Type",
				Aliases:  []string{"typeAbonnement", "abonnement", "membership", "plan"},
				Type:     core.FieldMembership,
				Required: true,
				Example:  "monthly",
				Values:   append(plans, "(any other label is kept as a custom type)"),
			},
			{
				Name:    "phone",
				Label:   "Phone",
				Aliases: []string{"telephone", "tel", "phone number", "mobile"},
				Type:    core.FieldText,
				Example: "+1 555 0100",
			},
			{
				Name:    "start_date",
				Label:   "Start Date",
				Aliases: []string{"dateDebut", "date de debut", "member since", "joined"},
				Type:    core.FieldDate,
				Default: core.DefaultToday(),
				Example: "2024-01-15",
			},
			{
				Name:    "status",
				Label:   "Status",
				Aliases: []string{"statut", "etat"},
				Type:    core.FieldText,
				Default: core.DefaultTo("active"),
				Example: "active",
				Values:  []string{"active", "inactive", "suspended", "expired"},
			},
			notesField(),
		},
	}
}
